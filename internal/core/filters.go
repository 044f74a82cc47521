package core

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter is a single collection query parameter.
type Filter struct {
	Key   string
	Value string
}

// Filters is an ordered list of collection query parameters. Order is
// preserved so the encoded query string is deterministic, which keeps
// cache keys stable for the same logical filter set.
type Filters []Filter

// With appends a filter. Empty values are dropped, matching the upstream
// convention that absent filters are simply omitted from the query.
func (f Filters) With(key, value string) Filters {
	key = strings.TrimSpace(key)
	if key == "" || value == "" {
		return f
	}
	return append(f, Filter{Key: key, Value: value})
}

// WithInt appends an integer filter. Zero values are dropped.
func (f Filters) WithInt(key string, value int) Filters {
	if value == 0 {
		return f
	}
	return f.With(key, strconv.Itoa(value))
}

// Get returns the first value recorded for key, or "".
func (f Filters) Get(key string) string {
	for _, filter := range f {
		if filter.Key == key {
			return filter.Value
		}
	}
	return ""
}

// Encode renders the filters as a URL query string in insertion order.
func (f Filters) Encode() string {
	if len(f) == 0 {
		return ""
	}

	var b strings.Builder
	for i, filter := range f {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(filter.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(filter.Value))
	}
	return b.String()
}
