package middleware

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/portalgate/portalgate/internal/metrics"
	"github.com/portalgate/portalgate/internal/ratelimit"
)

// RateLimit enforces the per-client sliding window. Health probes are
// exempt so orchestrator checks never starve behind noisy clients.
// Rejected requests get a 429 with a Retry-After hint; rejections do not
// count toward the client's window.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || strings.HasPrefix(r.URL.Path, "/health") {
				next.ServeHTTP(w, r)
				return
			}

			client := clientKey(r)
			if !limiter.Admit(client) {
				metrics.RecordRateLimitRejection(r.URL.Path)

				retryAfter := int(limiter.RetryAfter().Seconds())
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeErrorResponse(w, r, http.StatusTooManyRequests,
					"RATE_LIMITED", "Rate limit exceeded. Try again later.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientKey identifies the caller by IP. RealIP middleware runs first,
// so RemoteAddr already reflects X-Forwarded-For when present.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
