package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker probes a single dependency.
type HealthChecker func(ctx context.Context) error

const healthCheckTimeout = 5 * time.Second

// Health aggregates dependency probes into the health endpoints. The
// gateway stays "ok" when optional dependencies fail; only the readiness
// probe reports them.
type Health struct {
	mu       sync.RWMutex
	checkers map[string]HealthChecker
	started  time.Time
}

func NewHealth() *Health {
	return &Health{
		checkers: make(map[string]HealthChecker),
		started:  time.Now(),
	}
}

// Register adds a named dependency probe.
func (h *Health) Register(name string, checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Handler serves GET /health. The gateway itself is always "ok" once it
// is serving; dependency states ride along for operators.
func (h *Health) Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"uptime":     time.Since(h.started).Round(time.Second).String(),
		"checks":     h.runChecks(r.Context()),
		"version":    versionInfo.Version,
		"commit":     versionInfo.Commit,
		"build_date": versionInfo.Date,
	})
}

// LivenessHandler serves GET /health/live for orchestrator probes.
func (h *Health) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

// ReadinessHandler serves GET /health/ready. It fails when any
// registered dependency is unreachable.
func (h *Health) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	checks := h.runChecks(r.Context())
	status := http.StatusOK
	state := "ready"
	for _, result := range checks {
		if result != "healthy" {
			status = http.StatusServiceUnavailable
			state = "not ready"
			break
		}
	}
	writeJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (h *Health) runChecks(ctx context.Context) map[string]string {
	h.mu.RLock()
	checkers := make(map[string]HealthChecker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(map[string]string, len(checkers))
	for name, checker := range checkers {
		if err := checker(ctx); err != nil {
			results[name] = "unhealthy: " + err.Error()
		} else {
			results[name] = "healthy"
		}
	}
	return results
}
