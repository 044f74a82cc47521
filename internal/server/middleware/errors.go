package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/portalgate/portalgate/internal/metrics"
	"github.com/portalgate/portalgate/internal/observability"
)

// Recovery converts panics into 500 responses so a single bad request
// cannot take the gateway down.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if observability.ServerLogger != nil {
					observability.ServerLogger.Error("panic recovered",
						zap.String("correlation_id", GetRequestID(r.Context())),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.ByteString("stack", debug.Stack()),
					)
				}
				metrics.RecordPanic(r.URL.Path)
				writeErrorResponse(w, r, http.StatusInternalServerError,
					"INTERNAL_ERROR", "An internal error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// writeErrorResponse emits the gateway's standard error body. Kept local
// so middleware does not depend on the error envelope package, which
// itself imports this package for correlation IDs.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]any{
		"error": map[string]any{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(r.Context()),
		},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		fmt.Fprintf(w, `{"error":{"code":%q,"message":%q}}`, code, message)
	}
}
