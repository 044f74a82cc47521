package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalgate/portalgate/internal/cache"
	"github.com/portalgate/portalgate/internal/core"
	"github.com/portalgate/portalgate/internal/upstream"
)

// newTestGateway wires a gateway against a fake upstream and a fresh
// in-memory cache, routed through chi so URL params resolve.
func newTestGateway(t *testing.T, upstreamHandler http.HandlerFunc) (*chi.Mux, *Gateway) {
	t.Helper()

	fake := httptest.NewServer(upstreamHandler)
	t.Cleanup(fake.Close)

	gateway := &Gateway{
		Client:   &upstream.Client{BaseURL: fake.URL, MaxRetries: 1},
		Cache:    cache.NewMemoryCache(0),
		CacheTTL: time.Hour,
	}

	router := chi.NewRouter()
	for _, resource := range core.ResourceTypes() {
		router.Get("/"+resource.Plural(), gateway.ListResources(resource))
		router.Get("/"+resource.Plural()+"/{id}", gateway.GetResource(resource))
	}
	router.Get("/cache/clear", gateway.ClearCache)
	return router, gateway
}

func get(t *testing.T, router http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetResourceCachesUpstreamResponse(t *testing.T) {
	calls := 0
	router, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		require.Equal(t, "/character/42", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42, "name": "Rick Sanchez"})
	})

	first := get(t, router, "/characters/42")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get(t, router, "/characters/42")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &body))
	assert.Equal(t, "Rick Sanchez", body["name"])
}

func TestGetResourceRejectsBadID(t *testing.T) {
	router, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should not be called")
	})

	for _, target := range []string{"/characters/0", "/characters/-3", "/characters/abc"} {
		rec := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestGetResourceNotFoundMapsTo404(t *testing.T) {
	router, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := get(t, router, "/characters/999")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["error"]["code"])
}

func TestListResourcesForwardsFilters(t *testing.T) {
	var gotQuery string
	router, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(map[string]any{
			"info":    map[string]any{},
			"results": []map[string]any{{"id": 1, "name": "Rick Sanchez"}},
		})
	})

	rec := get(t, router, "/characters?name=rick&status=Alive&page=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, gotQuery, "name=rick")
	assert.Contains(t, gotQuery, "status=alive")
	assert.Contains(t, gotQuery, "page=2")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["count"])
}

func TestListResourcesRejectsInvalidQuery(t *testing.T) {
	router, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("upstream should not be called")
	})

	cases := map[string]string{
		"bad status":    "/characters?status=resurrected",
		"page too big":  "/characters?page=101",
		"page not int":  "/characters?page=two",
		"name too long": "/characters?name=" + strings.Repeat("a", 101),
	}
	for name, target := range cases {
		rec := get(t, router, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestListResourcesDistinctFiltersDistinctCacheKeys(t *testing.T) {
	calls := 0
	router, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"info":    map[string]any{},
			"results": []map[string]any{{"id": calls}},
		})
	})

	require.Equal(t, http.StatusOK, get(t, router, "/locations?name=earth").Code)
	require.Equal(t, http.StatusOK, get(t, router, "/locations?name=mars").Code)
	require.Equal(t, http.StatusOK, get(t, router, "/locations?name=earth").Code)
	assert.Equal(t, 2, calls)
}

func TestClearCacheRemovesMatchingEntries(t *testing.T) {
	router, gateway := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1})
	})

	require.Equal(t, http.StatusOK, get(t, router, "/characters/1").Code)
	require.Equal(t, http.StatusOK, get(t, router, "/episodes/1").Code)

	rec := get(t, router, "/cache/clear?pattern=character:*")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["removed"])

	_, hit, err := gateway.Cache.Get(t.Context(), cache.ResourceKey(core.ResourceEpisode, 1))
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestHealthEndpointsReportCheckerState(t *testing.T) {
	health := NewHealth()
	health.Register("cache", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	health.Handler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])

	checks, ok := body["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "healthy", checks["cache"])
}
