package walkforward

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachVisitsEveryIndex(t *testing.T) {
	for _, workers := range []int{0, 1, 4, 64} {
		seen := make([]int32, 50)
		err := forEach(context.Background(), len(seen), workers, func(_ context.Context, i int) error {
			atomic.AddInt32(&seen[i], 1)
			return nil
		})
		require.NoError(t, err)
		for i, n := range seen {
			assert.Equal(t, int32(1), n, "index %d with %d workers", i, workers)
		}
	}
}

func TestForEachReturnsFirstError(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	err := forEach(context.Background(), 1000, 1, func(_ context.Context, i int) error {
		atomic.AddInt32(&calls, 1)
		if i == 3 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Less(t, atomic.LoadInt32(&calls), int32(1000))
}

func TestForEachCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := forEach(ctx, 10, 2, func(context.Context, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)

	assert.ErrorIs(t, forEach(ctx, 0, 2, nil), context.Canceled)
	assert.NoError(t, forEach(context.Background(), 0, 2, nil))
}

func TestForEachBoundsConcurrency(t *testing.T) {
	var running, peak int32
	err := forEach(context.Background(), 40, 3, func(context.Context, int) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}
