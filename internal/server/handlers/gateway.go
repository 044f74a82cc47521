// Package handlers implements the gateway's HTTP endpoints: cached
// catalog reads, cache administration, and the bulk export trigger.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/portalgate/portalgate/internal/cache"
	"github.com/portalgate/portalgate/internal/core"
	apperrors "github.com/portalgate/portalgate/internal/errors"
	"github.com/portalgate/portalgate/internal/export"
	"github.com/portalgate/portalgate/internal/metrics"
	"github.com/portalgate/portalgate/internal/upstream"
)

// Gateway serves the cached catalog endpoints. All reads go through the
// cache first and fall back to the upstream client on a miss.
type Gateway struct {
	Client   *upstream.Client
	Cache    cache.Cache
	CacheTTL time.Duration
	Exporter *export.Exporter
	Logger   *logging.Logger
}

// ListResources returns a handler serving the full, filtered collection
// for one resource type. Pagination happens against the upstream: the
// page filter selects the starting page and the client walks the rest.
func (g *Gateway) ListResources(resource core.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, problems := parseFilters(resource, r.URL.Query())
		if len(problems) > 0 {
			apperrors.RespondWithError(w, r, invalidQueryError(problems))
			return
		}

		key := cache.CollectionKey(resource, filters)
		if g.serveCached(w, r, resource, key) {
			return
		}

		start := time.Now()
		items, err := g.Client.FetchAll(r.Context(), resource, filters)
		metrics.RecordUpstreamFetch(string(resource), err == nil, time.Since(start))
		if err != nil {
			apperrors.RespondWithEnvelope(w, r, apperrors.FromUpstream(r.Context(), err))
			return
		}

		g.respondAndCache(w, r, key, map[string]any{
			"count":   len(items),
			"results": items,
		})
	}
}

// GetResource returns a handler serving a single resource by ID.
func (g *Gateway) GetResource(resource core.ResourceType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil || id <= 0 {
			apperrors.RespondWithError(w, r,
				apperrors.NewInvalidInputError(fmt.Sprintf("%s ID must be a positive integer", resource)))
			return
		}

		key := cache.ResourceKey(resource, id)
		if g.serveCached(w, r, resource, key) {
			return
		}

		start := time.Now()
		item, fetchErr := g.Client.FetchOne(r.Context(), resource, id)
		metrics.RecordUpstreamFetch(string(resource), fetchErr == nil, time.Since(start))
		if fetchErr != nil {
			apperrors.RespondWithEnvelope(w, r, apperrors.FromUpstream(r.Context(), fetchErr))
			return
		}

		g.respondAndCache(w, r, key, item)
	}
}

// ClearCache invalidates cached entries matching the pattern query
// parameter, defaulting to everything.
func (g *Gateway) ClearCache(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		pattern = "*"
	}

	removed, err := g.Cache.InvalidateByPattern(r.Context(), pattern)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r,
			apperrors.WrapInternal(r.Context(), err, "Failed to clear the cache"))
		return
	}

	g.logInfo("cache cleared", zap.String("pattern", pattern), zap.Int("removed", removed))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": fmt.Sprintf("Cache entries matching %q cleared", pattern),
		"removed": removed,
	})
}

// DownloadAll kicks off the bulk export in the background and returns
// immediately. The export outlives the request, so it runs detached
// from the request context.
func (g *Gateway) DownloadAll(w http.ResponseWriter, r *http.Request) {
	if g.Exporter == nil {
		apperrors.RespondWithError(w, r, apperrors.NewInternalError("Export is not configured"))
		return
	}

	go func() {
		results, err := g.Exporter.Run(context.Background())
		if err != nil {
			g.logError("background export failed", zap.Error(err))
			return
		}
		total := 0
		for _, res := range results {
			total += res.Count
		}
		g.logInfo("background export complete", zap.Int("resources", total))
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":    "accepted",
		"message":   "Download started in background",
		"resources": []string{"characters", "locations", "episodes"},
	})
}

// serveCached writes the cached payload when present and reports whether
// it handled the request. Cache failures degrade to a miss.
func (g *Gateway) serveCached(w http.ResponseWriter, r *http.Request, resource core.ResourceType, key string) bool {
	data, hit, err := g.Cache.Get(r.Context(), key)
	if err != nil {
		g.logError("cache lookup failed", zap.String("key", key), zap.Error(err))
	}
	metrics.RecordCacheLookup(string(resource), hit)
	if !hit {
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "HIT")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
	return true
}

func (g *Gateway) respondAndCache(w http.ResponseWriter, r *http.Request, key string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		apperrors.RespondWithEnvelope(w, r,
			apperrors.WrapInternal(r.Context(), err, "Failed to encode the response"))
		return
	}

	if err := g.Cache.Set(r.Context(), key, data, g.CacheTTL); err != nil {
		g.logError("cache store failed", zap.String("key", key), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (g *Gateway) logInfo(msg string, fields ...zap.Field) {
	if g.Logger != nil {
		g.Logger.Info(msg, fields...)
	}
}

func (g *Gateway) logError(msg string, fields ...zap.Field) {
	if g.Logger != nil {
		g.Logger.Error(msg, fields...)
	}
}
