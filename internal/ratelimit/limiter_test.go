package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestLimiter(limit int, clock *fakeClock) *Limiter {
	return New(Config{
		RequestsPerMinute: limit,
		Clock:             clock.Now,
	})
}

func TestAdmitUpToLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(3, clock)

	require.True(t, limiter.Admit("10.0.0.1"))
	require.True(t, limiter.Admit("10.0.0.1"))
	require.True(t, limiter.Admit("10.0.0.1"))
	require.False(t, limiter.Admit("10.0.0.1"))
}

func TestUnknownClientAlwaysAdmitted(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(1, clock)

	require.True(t, limiter.Admit("first-seen"))
}

func TestClientsAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(1, clock)

	require.True(t, limiter.Admit("10.0.0.1"))
	require.False(t, limiter.Admit("10.0.0.1"))
	require.True(t, limiter.Admit("10.0.0.2"))
}

func TestSlidingWindowBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(30, clock)

	for i := 0; i < 30; i++ {
		require.True(t, limiter.Admit("10.0.0.1"), fmt.Sprintf("request %d", i+1))
	}

	clock.Advance(59 * time.Second)
	require.False(t, limiter.Admit("10.0.0.1"), "window still holds 30 timestamps at t=59s")

	clock.Advance(2 * time.Second)
	require.True(t, limiter.Admit("10.0.0.1"), "t=61s: the t=0 timestamps have expired")
}

func TestRejectionsDoNotCount(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(2, clock)

	require.True(t, limiter.Admit("10.0.0.1"))
	require.True(t, limiter.Admit("10.0.0.1"))

	// Hammering while over-limit must not push the reset time out.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		require.False(t, limiter.Admit("10.0.0.1"))
	}

	clock.Advance(51 * time.Second) // t=61s relative to the admitted pair
	require.True(t, limiter.Admit("10.0.0.1"))
}

func TestIdleClientsEvicted(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(30, clock)

	require.True(t, limiter.Admit("10.0.0.1"))
	require.Equal(t, 1, limiter.TrackedClients())

	clock.Advance(6 * time.Minute)
	require.True(t, limiter.Admit("10.0.0.2"))

	// The cleanup pass triggered by the second client's admission must
	// have dropped the idle first client.
	require.Equal(t, 1, limiter.TrackedClients())
}

func TestActiveClientsSurviveCleanup(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := newTestLimiter(30, clock)

	require.True(t, limiter.Admit("10.0.0.1"))

	clock.Advance(4 * time.Minute)
	require.True(t, limiter.Admit("10.0.0.1"))

	clock.Advance(2 * time.Minute)
	require.True(t, limiter.Admit("10.0.0.2"))

	// 10.0.0.1 was active 2 minutes ago, inside the evict-after window.
	require.Equal(t, 2, limiter.TrackedClients())
}

func TestRetryAfter(t *testing.T) {
	limiter := New(Config{})
	require.Equal(t, time.Minute, limiter.RetryAfter())
}

func TestDefaults(t *testing.T) {
	limiter := New(Config{})
	require.Equal(t, DefaultRequestsPerMinute, limiter.limit)
	require.Equal(t, 5*time.Minute, limiter.evictAfter)
}
