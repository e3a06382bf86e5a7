package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrUnorderedSeries = errors.New("series timestamps must be strictly increasing")
	ErrNonFiniteValue  = errors.New("series values must be finite")
)

// Observation is one (timestamp, value) point.
type Observation struct {
	Time  time.Time
	Value float64
}

// IndexRange is a half-open [Start, End) range over a Series index.
type IndexRange struct {
	Start int
	End   int
}

func (r IndexRange) Len() int { return r.End - r.Start }

func (r IndexRange) Contains(i int) bool { return i >= r.Start && i < r.End }

// Overlaps reports whether the two ranges share at least one index.
func (r IndexRange) Overlaps(o IndexRange) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r IndexRange) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Series is an immutable, strictly time-ordered sequence of observations.
// Slices of a Series share storage with it; no method hands out the backing array.
type Series struct {
	symbol string
	points []Observation
}

// NewSeries copies points into a new Series after checking ordering and finiteness.
func NewSeries(symbol string, points []Observation) (Series, error) {
	out := make([]Observation, len(points))
	for i, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return Series{}, fmt.Errorf("observation %d: %w", i, ErrNonFiniteValue)
		}
		if i > 0 && !p.Time.After(points[i-1].Time) {
			return Series{}, fmt.Errorf("observation %d at %s: %w", i, p.Time.Format(time.RFC3339), ErrUnorderedSeries)
		}
		out[i] = p
	}
	return Series{symbol: symbol, points: out}, nil
}

// SeriesFromCandles builds a close-price series.
func SeriesFromCandles(symbol string, candles []Candle) (Series, error) {
	points := make([]Observation, len(candles))
	for i, c := range candles {
		points[i] = Observation{Time: c.Bucket, Value: c.Close}
	}
	return NewSeries(symbol, points)
}

func (s Series) Symbol() string { return s.symbol }

func (s Series) Len() int { return len(s.points) }

func (s Series) At(i int) Observation { return s.points[i] }

// Values returns a copy of the observation values.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// Points returns a copy of the observations.
func (s Series) Points() []Observation {
	out := make([]Observation, len(s.points))
	copy(out, s.points)
	return out
}

// Slice returns the sub-series covering r. It panics if r is out of bounds.
func (s Series) Slice(r IndexRange) Series {
	if r.Start < 0 || r.End > len(s.points) || r.Start > r.End {
		panic(fmt.Sprintf("series slice %s out of bounds for length %d", r, len(s.points)))
	}
	return Series{symbol: s.symbol, points: s.points[r.Start:r.End:r.End]}
}

// Span returns the first and last timestamps, or zero times for an empty series.
func (s Series) Span() (time.Time, time.Time) {
	if len(s.points) == 0 {
		return time.Time{}, time.Time{}
	}
	return s.points[0].Time, s.points[len(s.points)-1].Time
}
