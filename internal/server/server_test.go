package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalgate/portalgate/internal/cache"
	"github.com/portalgate/portalgate/internal/ratelimit"
	"github.com/portalgate/portalgate/internal/server/handlers"
	"github.com/portalgate/portalgate/internal/upstream"
)

func newTestServer(t *testing.T, limit int, upstreamHandler http.HandlerFunc) http.Handler {
	t.Helper()

	fake := httptest.NewServer(upstreamHandler)
	t.Cleanup(fake.Close)

	gateway := &handlers.Gateway{
		Client:   &upstream.Client{BaseURL: fake.URL, MaxRetries: 1},
		Cache:    cache.NewMemoryCache(0),
		CacheTTL: time.Hour,
	}
	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: limit})

	srv := New(Config{Host: "127.0.0.1", Port: 0}, limiter, gateway, handlers.NewHealth())
	return srv.Handler()
}

func doGet(handler http.Handler, target, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRoutesServeCatalog(t *testing.T) {
	handler := newTestServer(t, 30, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "name": "Abradolf Lincler"})
	})

	rec := doGet(handler, "/characters/7", "10.0.0.1:1000")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Abradolf Lincler", body["name"])
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	handler := newTestServer(t, 30, func(w http.ResponseWriter, r *http.Request) {})

	rec := doGet(handler, "/planets", "10.0.0.1:1000")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body["error"]["code"])
	assert.NotEmpty(t, body["error"]["request_id"])
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestServer(t, 30, func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodDelete, "/characters", nil)
	req.RemoteAddr = "10.0.0.1:1000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRateLimitAppliesAcrossRoutes(t *testing.T) {
	handler := newTestServer(t, 2, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1})
	})

	require.Equal(t, http.StatusOK, doGet(handler, "/characters/1", "10.0.0.9:1").Code)
	require.Equal(t, http.StatusOK, doGet(handler, "/episodes/1", "10.0.0.9:1").Code)

	rec := doGet(handler, "/locations/1", "10.0.0.9:1")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	health := doGet(handler, "/health", "10.0.0.9:1")
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestVersionRoute(t *testing.T) {
	handler := newTestServer(t, 30, func(w http.ResponseWriter, r *http.Request) {})

	rec := doGet(handler, "/version", "10.0.0.1:1000")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["version"])
}
