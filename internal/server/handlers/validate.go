package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"

	"github.com/portalgate/portalgate/internal/core"
	apperrors "github.com/portalgate/portalgate/internal/errors"
)

const (
	maxFilterLength = 100
	maxPage         = 100
)

// filterParams lists the string filters each collection accepts, in the
// order they are forwarded upstream.
var filterParams = map[core.ResourceType][]string{
	core.ResourceCharacter: {"name", "status", "species"},
	core.ResourceLocation:  {"name", "type", "dimension"},
	core.ResourceEpisode:   {"name", "episode"},
}

var characterStatuses = map[string]bool{
	"alive":   true,
	"dead":    true,
	"unknown": true,
}

// parseFilters extracts and validates the query filters for a resource
// collection. All problems are collected so the client sees every
// invalid parameter at once.
func parseFilters(resource core.ResourceType, query url.Values) (core.Filters, []string) {
	var filters core.Filters
	var problems []string

	for _, param := range filterParams[resource] {
		value := strings.TrimSpace(query.Get(param))
		if value == "" {
			continue
		}
		if len(value) > maxFilterLength {
			problems = append(problems, fmt.Sprintf("%s must be at most %d characters", param, maxFilterLength))
			continue
		}
		if resource == core.ResourceCharacter && param == "status" {
			value = strings.ToLower(value)
			if !characterStatuses[value] {
				problems = append(problems, "status must be one of: alive, dead, unknown")
				continue
			}
		}
		filters = filters.With(param, value)
	}

	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 || page > maxPage {
			problems = append(problems, fmt.Sprintf("page must be an integer between 1 and %d", maxPage))
		} else {
			filters = filters.WithInt("page", page)
		}
	}

	return filters, problems
}

func invalidQueryError(problems []string) *errors.ErrorEnvelope {
	return apperrors.NewInvalidInputError(
		"Invalid query parameters: " + strings.Join(problems, "; "))
}
