package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/foodlens/internal/config"
)

// testClock is a settable clock safe for use from the sweep goroutine.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithClock(clock.Now))
	defer c.Close()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value := []byte("v1")
	require.NoError(t, c.Set(ctx, "k", value, time.Minute))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)
	got[0] = 'y'
	got, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	clock.Advance(time.Minute)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v2"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
}

func TestMemoryCacheWithoutTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithClock(clock.Now))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "pinned", []byte("v"), 0))
	clock.Advance(365 * 24 * time.Hour)
	c.sweep()

	got, err := c.Get(ctx, "pinned")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheSweepsExpiredEntries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	clock := &testClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryCache(WithClock(clock.Now), WithSweepInterval(5*time.Millisecond))
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, c.Set(ctx, "long", []byte("b"), time.Hour))
	require.Equal(t, 2, c.Len())

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err := c.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestNewSelectsBackend(t *testing.T) {
	t.Parallel()

	c, err := New(context.Background(), config.CacheConfig{Backend: "none"})
	require.NoError(t, err)
	require.NoError(t, c.Set(context.Background(), "k", []byte("v"), time.Minute))
	_, err = c.Get(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	c, err = New(context.Background(), config.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(context.Background(), config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
