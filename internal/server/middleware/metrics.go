package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/portalgate/portalgate/internal/observability"
)

// responseWriter captures the status code for metrics and logging.
type responseWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rw *responseWriter) WriteHeader(status int) {
	if !rw.written {
		rw.status = status
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.status = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// RequestMetrics records request counts and latency per route pattern
// and logs one structured completion line per request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)
		endpoint := routePattern(r)
		labels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   strconv.Itoa(rw.status),
		}

		if observability.TelemetrySystem != nil {
			_ = observability.TelemetrySystem.Counter("http_requests_total", 1, labels)
			_ = observability.TelemetrySystem.Histogram("http_request_duration_ms", duration, labels)
			if rw.status >= 400 {
				_ = observability.TelemetrySystem.Counter("http_errors_total", 1, labels)
			}
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("request completed",
				zap.String("correlation_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("endpoint", endpoint),
				zap.Int("status", rw.status),
				zap.Duration("duration", duration),
			)
		}
	})
}

// routePattern prefers the chi route pattern over the raw path so
// metrics stay low-cardinality across resource IDs.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
