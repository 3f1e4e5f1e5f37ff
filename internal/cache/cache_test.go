package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryCache(t *testing.T) *MemoryCache {
	t.Helper()
	c := NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	return c
}

// runCacheContract checks behaviour every Cache implementation shares.
func runCacheContract(t *testing.T, c Cache) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, err := c.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

		got, err := c.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", string(got))

		ok, err := c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)

		require.NoError(t, c.Delete(ctx, "k"))
		ok, err = c.Exists(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("get or set computes once", func(t *testing.T) {
		calls := 0
		fn := func() ([]byte, error) {
			calls++
			return []byte("computed"), nil
		}

		for range 2 {
			got, err := c.GetOrSet(ctx, "gos", time.Minute, fn)
			require.NoError(t, err)
			assert.Equal(t, "computed", string(got))
		}
		assert.Equal(t, 1, calls)
	})

	t.Run("get or set does not store failures", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := c.GetOrSet(ctx, "fail", time.Minute, func() ([]byte, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)

		ok, err := c.Exists(ctx, "fail")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("clear", func(t *testing.T) {
		require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
		require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
		require.NoError(t, c.Clear(ctx))

		_, err := c.Get(ctx, "a")
		assert.ErrorIs(t, err, ErrCacheMiss)
	})
}

func TestMemoryCache(t *testing.T) {
	runCacheContract(t, newMemoryCache(t))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := newMemoryCache(t)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("y"), 0))

	now = now.Add(2 * time.Second)

	_, err := c.Get(ctx, "short")
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, "y", string(got))

	c.removeExpired()
	c.mu.RLock()
	assert.Len(t, c.entries, 1)
	c.mu.RUnlock()
}

func TestMemoryCache_ReturnsCopies(t *testing.T) {
	c := newMemoryCache(t)
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryCache_CloseTwice(t *testing.T) {
	c := NewMemoryCache()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

// Runs only against a live server, e.g. REDIS_TEST_ADDR=localhost:6379
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	c, err := NewRedisCache(context.Background(), RedisConfig{Addr: addr, KeyPrefix: "sweetshop-test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		c.Close()
	})

	runCacheContract(t, c)
}
