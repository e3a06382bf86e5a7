package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeriesRejectsBadInput(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewSeries("X", []Observation{{Time: t0, Value: 1}, {Time: t0, Value: 2}})
	assert.ErrorIs(t, err, ErrUnorderedSeries)

	_, err = NewSeries("X", []Observation{{Time: t0, Value: math.NaN()}})
	assert.ErrorIs(t, err, ErrNonFiniteValue)
}

func TestSeriesSliceIsIsolated(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs := make([]Observation, 10)
	for i := range obs {
		obs[i] = Observation{Time: t0.Add(time.Duration(i) * time.Hour), Value: float64(i)}
	}
	s, err := NewSeries("X", obs)
	require.NoError(t, err)

	obs[0].Value = 99
	assert.Equal(t, 0.0, s.At(0).Value)

	sub := s.Slice(IndexRange{Start: 3, End: 6})
	assert.Equal(t, []float64{3, 4, 5}, sub.Values())
	vals := sub.Values()
	vals[0] = -1
	assert.Equal(t, 3.0, sub.At(0).Value)

	assert.Panics(t, func() { s.Slice(IndexRange{Start: 5, End: 11}) })
}

func TestIndexRange(t *testing.T) {
	a := IndexRange{Start: 0, End: 5}
	b := IndexRange{Start: 5, End: 8}
	assert.False(t, a.Overlaps(b))
	assert.True(t, a.Overlaps(IndexRange{Start: 4, End: 6}))
	assert.True(t, a.Contains(4))
	assert.False(t, a.Contains(5))
	assert.Equal(t, 3, b.Len())
}
