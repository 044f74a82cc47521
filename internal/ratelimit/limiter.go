// Package ratelimit implements per-client admission control for the
// gateway using an exact-timestamp sliding window.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultRequestsPerMinute is the per-client admission budget.
	DefaultRequestsPerMinute = 30

	defaultWindow          = time.Minute
	defaultCleanupInterval = 5 * time.Minute
	defaultEvictAfter      = 5 * time.Minute
)

// Config tunes a Limiter. Zero fields fall back to defaults.
type Config struct {
	// RequestsPerMinute is the maximum number of admitted requests per
	// client key within the sliding window.
	RequestsPerMinute int

	// Window is the sliding window duration.
	Window time.Duration

	// CleanupInterval bounds how often idle client entries are scanned.
	CleanupInterval time.Duration

	// EvictAfter is the idle duration after which a client entry is dropped.
	EvictAfter time.Duration

	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// Limiter tracks request timestamps per client key and decides
// admit/reject. It never blocks: rejection handling (429 + Retry-After)
// belongs to the caller. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	clients     map[string][]time.Time
	lastCleanup time.Time

	limit           int
	window          time.Duration
	cleanupInterval time.Duration
	evictAfter      time.Duration
	clock           func() time.Time
}

// New creates a Limiter from cfg.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.EvictAfter <= 0 {
		cfg.EvictAfter = defaultEvictAfter
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Limiter{
		clients:         make(map[string][]time.Time),
		lastCleanup:     cfg.Clock(),
		limit:           cfg.RequestsPerMinute,
		window:          cfg.Window,
		cleanupInterval: cfg.CleanupInterval,
		evictAfter:      cfg.EvictAfter,
		clock:           cfg.Clock,
	}
}

// Admit reports whether a request from clientKey may proceed. Admitted
// requests record a timestamp; rejected requests do not, so hammering a
// rejected key never pushes its reset time further out.
func (l *Limiter) Admit(clientKey string) bool {
	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	// Prune timestamps that fell out of the trailing window.
	cutoff := now.Add(-l.window)
	stamps := l.clients[clientKey]
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.limit {
		l.clients[clientKey] = kept
		l.maybeCleanup(now)
		return false
	}

	l.clients[clientKey] = append(kept, now)
	l.maybeCleanup(now)
	return true
}

// RetryAfter returns the hint callers should surface with a rejection.
func (l *Limiter) RetryAfter() time.Duration {
	return l.window
}

// TrackedClients returns the number of client keys currently held.
func (l *Limiter) TrackedClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// maybeCleanup drops idle client entries at most once per cleanup
// interval, keeping memory bounded under churn of distinct keys.
// Caller must hold l.mu.
func (l *Limiter) maybeCleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < l.cleanupInterval {
		return
	}
	l.lastCleanup = now

	idleCutoff := now.Add(-l.evictAfter)
	for key, stamps := range l.clients {
		if len(stamps) == 0 || !stamps[len(stamps)-1].After(idleCutoff) {
			delete(l.clients, key)
		}
	}
}
