package simulator

import (
	"context"
	"fmt"
	"math"

	"FinWalk/internal/domain/models"
	domsvc "FinWalk/internal/domain/service"
	"FinWalk/internal/services/features"
)

// Crossover simulates a moving-average crossover rule and scores it by the
// annualized Sharpe ratio of its per-bar returns.
//
// A fast SMA crossing above the slow SMA is an entry, crossing below is an
// exit. Direction decides what they open: long enters long and exits flat,
// short enters short and exits flat, both flips between long and short.
// Positions are taken at the signal bar's close.
type Crossover struct {
	fees float64
}

// Option configures Crossover.
type Option func(*Crossover)

// WithFees charges fees per unit of position change.
func WithFees(fees float64) Option {
	return func(c *Crossover) { c.fees = fees }
}

func NewCrossover(opts ...Option) *Crossover {
	c := &Crossover{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fees returns the per-trade fee fraction.
func (c *Crossover) Fees() float64 { return c.fees }

// Simulate returns NaN when the segment produces no trade.
func (c *Crossover) Simulate(ctx context.Context, segment models.Series, params models.ParameterPair, direction models.Direction, freq models.Frequency) (float64, error) {
	if params.Fast <= 0 || params.Slow <= 0 {
		return 0, fmt.Errorf("window lengths must be positive, got %s", params)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	closes := segment.Values()
	fast := features.SMA(closes, params.Fast)
	slow := features.SMA(closes, params.Slow)

	positions, trades, err := crossoverPositions(fast, slow, direction)
	if err != nil {
		return 0, err
	}
	if trades == 0 {
		return math.NaN(), nil
	}
	return features.Sharpe(strategyReturns(closes, positions, c.fees), features.BarsPerYearForTF(string(freq))), nil
}

func crossoverPositions(fast, slow []float64, direction models.Direction) ([]float64, int, error) {
	var onEntry, onExit float64
	switch direction {
	case models.DirectionLong:
		onEntry, onExit = 1, 0
	case models.DirectionShort:
		onEntry, onExit = -1, 0
	case models.DirectionBoth:
		onEntry, onExit = 1, -1
	default:
		return nil, 0, fmt.Errorf("unknown direction %q", direction)
	}

	positions := make([]float64, len(fast))
	pos := 0.0
	trades := 0
	for i := 1; i < len(fast); i++ {
		if defined(fast[i], slow[i], fast[i-1], slow[i-1]) {
			next := pos
			switch {
			case fast[i] > slow[i] && fast[i-1] <= slow[i-1]:
				next = onEntry
			case fast[i] < slow[i] && fast[i-1] >= slow[i-1]:
				next = onExit
			}
			if next != pos {
				trades++
				pos = next
			}
		}
		positions[i] = pos
	}
	return positions, trades, nil
}

// strategyReturns applies the position held at bar i-1 to the return of bar i
// and charges fees on every position change.
func strategyReturns(closes, positions []float64, fees float64) []float64 {
	bar := features.SimpleReturns(closes)
	out := make([]float64, len(bar))
	prev := 0.0
	for i, r := range bar {
		p := positions[i]
		out[i] = p*r - fees*math.Abs(p-prev)
		prev = p
	}
	return out
}

func defined(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

var _ domsvc.SignalSimulator = (*Crossover)(nil)
