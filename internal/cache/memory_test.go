package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/portalgate/portalgate/internal/core"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close() // nolint:errcheck

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "character:1", []byte(`{"id":1}`), time.Minute))

	value, ok, err := c.Get(ctx, "character:1")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"id":1}`, string(value))

	_, ok, err = c.Get(ctx, "character:2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close() // nolint:errcheck

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c.clock = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "episode:1", []byte(`{}`), time.Minute))

	now = now.Add(61 * time.Second)
	_, ok, err := c.Get(ctx, "episode:1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryCacheInvalidateByPattern(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close() // nolint:errcheck

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "characters:name=Rick", []byte(`[]`), time.Minute))
	require.NoError(t, c.Set(ctx, "characters:name=Morty", []byte(`[]`), time.Minute))
	require.NoError(t, c.Set(ctx, "episode:1", []byte(`{}`), time.Minute))

	removed, err := c.InvalidateByPattern(ctx, "characters:*")
	require.NoError(t, err)
	require.Equal(t, 2, removed)

	_, ok, err := c.Get(ctx, "episode:1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCacheKeys(t *testing.T) {
	require.Equal(t, "character:42", ResourceKey(core.ResourceCharacter, 42))

	filters := core.Filters{}.With("name", "Rick").WithInt("page", 2)
	require.Equal(t, "characters:name=Rick&page=2", CollectionKey(core.ResourceCharacter, filters))

	// Same filters, same insertion order, same key.
	again := core.Filters{}.With("name", "Rick").WithInt("page", 2)
	require.Equal(t, CollectionKey(core.ResourceCharacter, filters), CollectionKey(core.ResourceCharacter, again))
}
