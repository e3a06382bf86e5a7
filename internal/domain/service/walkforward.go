package service

import (
	"context"

	"FinWalk/internal/domain/models"
)

// SignalSimulator scores one parameterization of a rule on one segment.
// Implementations must be pure, must not mutate segment and may return NaN
// when the segment yields no usable result (e.g. no signal crossings).
type SignalSimulator interface {
	Simulate(ctx context.Context, segment models.Series, params models.ParameterPair, direction models.Direction, freq models.Frequency) (float64, error)
}

// HoldingSimulator scores a buy-and-hold position over a segment.
type HoldingSimulator interface {
	SimulateHolding(ctx context.Context, segment models.Series, freq models.Frequency) (float64, error)
}

// TwoSampleTest tests sample a against sample b under the given alternative,
// where "greater" means mean(a) > mean(b).
type TwoSampleTest interface {
	Test(ctx context.Context, a, b []float64, alt models.Alternative) (models.TestOutcome, error)
	Name() string
}

// SignalSimulatorFunc adapts a plain function to SignalSimulator.
type SignalSimulatorFunc func(ctx context.Context, segment models.Series, params models.ParameterPair, direction models.Direction, freq models.Frequency) (float64, error)

func (f SignalSimulatorFunc) Simulate(ctx context.Context, segment models.Series, params models.ParameterPair, direction models.Direction, freq models.Frequency) (float64, error) {
	return f(ctx, segment, params, direction, freq)
}
