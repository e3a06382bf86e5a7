package walkforward

import (
	"context"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/domain/service"
)

// Validate re-simulates every split that has a selection, once, with the
// selected pair on that split's out-of-sample segment. Splits without a
// selection are omitted. NaN scores are recorded as returned.
func Validate(ctx context.Context, series models.Series, splits models.SplitSet, selection models.SelectionResult, sim service.SignalSimulator, set Settings, workers int) (models.ValidationResult, error) {
	res := models.NewValidationResult()

	todo := make([]models.Split, 0, len(splits))
	for _, sp := range splits {
		if _, ok := selection.Get(sp.ID); ok {
			todo = append(todo, sp)
		}
	}

	slots := make([]models.OutOfSampleScore, len(todo))
	err := forEach(ctx, len(todo), workers, func(ctx context.Context, i int) error {
		sp := todo[i]
		sel, _ := selection.Get(sp.ID)
		score, err := sim.Simulate(ctx, series.Slice(sp.OutSample), sel.Pair, set.Direction, set.Frequency)
		if err != nil {
			pair := sel.Pair
			return &SimulationError{Stage: StageOutSample, SplitID: sp.ID, Pair: &pair, Err: err}
		}
		slots[i] = models.OutOfSampleScore{SplitID: sp.ID, Pair: sel.Pair, Score: score}
		return nil
	})
	if err != nil {
		return models.ValidationResult{}, err
	}

	for _, s := range slots {
		res.Scores[s.SplitID] = s
	}
	return res, nil
}

// HoldingBaselines scores buy-and-hold on both segments of every split.
func HoldingBaselines(ctx context.Context, series models.Series, splits models.SplitSet, hold service.HoldingSimulator, freq models.Frequency, workers int) ([]models.HoldingBaseline, error) {
	out := make([]models.HoldingBaseline, len(splits))
	err := forEach(ctx, len(splits), workers, func(ctx context.Context, i int) error {
		sp := splits[i]
		in, err := hold.SimulateHolding(ctx, series.Slice(sp.InSample), freq)
		if err != nil {
			return &SimulationError{Stage: StageHolding, SplitID: sp.ID, Err: err}
		}
		oos, err := hold.SimulateHolding(ctx, series.Slice(sp.OutSample), freq)
		if err != nil {
			return &SimulationError{Stage: StageHolding, SplitID: sp.ID, Err: err}
		}
		out[i] = models.HoldingBaseline{SplitID: sp.ID, InSample: in, OutSample: oos}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
