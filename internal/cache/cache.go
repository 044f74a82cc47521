// Package cache provides the gateway's response cache: a TTL key-value
// store holding upstream JSON payloads keyed by resource and filter set.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/portalgate/portalgate/internal/core"
)

// DefaultTTL is how long cached upstream responses stay valid.
const DefaultTTL = time.Hour

// Cache is a TTL key-value store for serialized responses. Get and Set
// are atomic per key; no read-modify-write is required of callers.
type Cache interface {
	// Get returns the cached value and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// InvalidateByPattern removes keys matching a glob-style pattern
	// and returns how many were dropped.
	InvalidateByPattern(ctx context.Context, pattern string) (int, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// ResourceKey builds the cache key for a single resource lookup,
// e.g. "character:42".
func ResourceKey(resource core.ResourceType, id int) string {
	return fmt.Sprintf("%s:%d", resource, id)
}

// CollectionKey builds the cache key for a filtered collection fetch,
// e.g. "characters:name=Rick&page=2". Filters encode in insertion order,
// so equal filter sets always map to the same key.
func CollectionKey(resource core.ResourceType, filters core.Filters) string {
	return fmt.Sprintf("%s:%s", resource.Plural(), filters.Encode())
}
