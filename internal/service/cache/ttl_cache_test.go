package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheBytes(t *testing.T) {
	c := NewTTLCache(0)
	ctx := context.Background()

	_, ok, err := c.GetBytes(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetBytes(ctx, "k", []byte("1.25"), time.Minute))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1.25"), b)
}

func TestTTLCacheExpiry(t *testing.T) {
	c := NewTTLCache(0)
	c.Set("short", 1, 10*time.Millisecond)
	c.Set("forever", 2, 0)

	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get("short")
	assert.False(t, ok)
	v, ok := c.Get("forever")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheEvictsWhenFull(t *testing.T) {
	c := NewTTLCache(3)
	for i := 0; i < 10; i++ {
		c.Set(fmt.Sprintf("k%d", i), i, time.Minute)
		assert.LessOrEqual(t, c.Len(), 3)
	}
	v, ok := c.Get("k9")
	require.True(t, ok)
	assert.Equal(t, 9, v)
}

func TestTTLCachePrefersExpiredOnEviction(t *testing.T) {
	c := NewTTLCache(2)
	c.Set("old", 0, 5*time.Millisecond)
	c.Set("keep", 1, time.Minute)
	time.Sleep(20 * time.Millisecond)

	c.Set("new", 2, time.Minute)
	_, ok := c.Get("keep")
	assert.True(t, ok)
	_, ok = c.Get("new")
	assert.True(t, ok)
}

func TestTTLCacheOverwriteDoesNotEvict(t *testing.T) {
	c := NewTTLCache(2)
	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Set("a", 3, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 3, v)
	_, ok = c.Get("b")
	assert.True(t, ok)
}

func TestTTLCacheDropExpiredKeepsFreshValue(t *testing.T) {
	c := NewTTLCache(0)
	c.Set("k", "stale", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	// A Set landing after Get saw the stale entry must survive the cleanup.
	c.Set("k", "fresh", time.Minute)
	c.dropExpired("k")
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "fresh", v)

	c.Set("old", "x", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	c.dropExpired("old")
	assert.Equal(t, 1, c.Len())
}
