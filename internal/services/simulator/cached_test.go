package simulator

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	"FinWalk/internal/service/cache"
)

type countingSim struct {
	calls int
}

func (c *countingSim) Simulate(_ context.Context, segment models.Series, p models.ParameterPair, _ models.Direction, _ models.Frequency) (float64, error) {
	c.calls++
	return float64(segment.Len()*100 + p.Fast), nil
}

type lookupMetrics struct {
	domrepo.NopMetrics
	mu      sync.Mutex
	lookups map[string]int
}

func (m *lookupMetrics) RecordCacheLookup(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lookups == nil {
		m.lookups = make(map[string]int)
	}
	m.lookups[result]++
}

type brokenCache struct{}

func (brokenCache) GetBytes(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) SetBytes(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func TestCachedHitAndMiss(t *testing.T) {
	ctx := context.Background()
	next := &countingSim{}
	m := &lookupMetrics{}
	sim := NewCached(next, cache.NewTTLCache(0), time.Minute, WithNamespace("test"), WithCacheMetrics(m))

	seg := seriesOf(t, vShape...)
	pair := models.ParameterPair{Fast: 2, Slow: 4}

	first, err := sim.Simulate(ctx, seg, pair, models.DirectionLong, "1d")
	require.NoError(t, err)
	second, err := sim.Simulate(ctx, seg, pair, models.DirectionLong, "1d")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)

	_, err = sim.Simulate(ctx, seg, models.ParameterPair{Fast: 3, Slow: 4}, models.DirectionLong, "1d")
	require.NoError(t, err)
	_, err = sim.Simulate(ctx, seg, pair, models.DirectionShort, "1d")
	require.NoError(t, err)
	_, err = sim.Simulate(ctx, seriesOf(t, vShape[:10]...), pair, models.DirectionLong, "1d")
	require.NoError(t, err)
	assert.Equal(t, 4, next.calls)

	assert.Equal(t, 1, m.lookups["hit"])
	assert.Equal(t, 4, m.lookups["miss"])
}

func TestCachedNamespacesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := cache.NewTTLCache(0)
	next := &countingSim{}
	seg := seriesOf(t, vShape...)
	pair := models.ParameterPair{Fast: 2, Slow: 4}

	_, err := NewCached(next, store, time.Minute, WithNamespace("fees=0")).Simulate(ctx, seg, pair, models.DirectionLong, "1d")
	require.NoError(t, err)
	_, err = NewCached(next, store, time.Minute, WithNamespace("fees=0.001")).Simulate(ctx, seg, pair, models.DirectionLong, "1d")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
	assert.Equal(t, 2, store.Len())
}

func TestCachedFallsThroughOnCacheErrors(t *testing.T) {
	next := &countingSim{}
	m := &lookupMetrics{}
	sim := NewCached(next, brokenCache{}, time.Minute, WithCacheMetrics(m))
	seg := seriesOf(t, vShape...)

	score, err := sim.Simulate(context.Background(), seg, models.ParameterPair{Fast: 2, Slow: 4}, models.DirectionLong, "1d")
	require.NoError(t, err)
	assert.Equal(t, float64(14*100+2), score)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, m.lookups["error"])
}

func TestCachedKeepsNaN(t *testing.T) {
	ctx := context.Background()
	store := cache.NewTTLCache(0)
	sim := NewCached(NewCrossover(), store, time.Minute)
	seg := seriesOf(t, 1, 2, 3, 4, 5, 6, 7, 8)

	first, err := sim.Simulate(ctx, seg, models.ParameterPair{Fast: 2, Slow: 4}, models.DirectionLong, "1d")
	require.NoError(t, err)
	second, err := sim.Simulate(ctx, seg, models.ParameterPair{Fast: 2, Slow: 4}, models.DirectionLong, "1d")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(first))
	assert.True(t, math.IsNaN(second))
}
