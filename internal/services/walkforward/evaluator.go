package walkforward

import (
	"context"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/domain/service"
)

// Simulation stages, used in errors, logs and metrics.
const (
	StageInSample  = "in_sample"
	StageOutSample = "out_of_sample"
	StageHolding   = "holding"
)

// Settings are passed unchanged to every simulator call of a run.
type Settings struct {
	Direction models.Direction
	Frequency models.Frequency
}

// EvaluateSegment scores every pair of grid on one split's in-sample segment.
// NaN scores are kept as they are.
func EvaluateSegment(ctx context.Context, segment models.Series, splitID int, grid []models.ParameterPair, sim service.SignalSimulator, set Settings) ([]models.ScoreEntry, error) {
	out := make([]models.ScoreEntry, len(grid))
	for rank, p := range grid {
		e, err := scoreCell(ctx, segment, splitID, rank, p, sim, set)
		if err != nil {
			return nil, err
		}
		out[rank] = e
	}
	return out, nil
}

// EvaluateGrid scores the splits x grid cross product, each cell on its split's
// in-sample segment only. Cells are computed on up to workers goroutines into
// pre-allocated slots and merged into the table once all are done.
func EvaluateGrid(ctx context.Context, series models.Series, splits models.SplitSet, grid []models.ParameterPair, sim service.SignalSimulator, set Settings, workers int) (*models.ScoreTable, error) {
	table := models.NewScoreTable()
	if len(grid) == 0 || len(splits) == 0 {
		return table, nil
	}

	cells := make([]models.ScoreEntry, len(splits)*len(grid))
	err := forEach(ctx, len(cells), workers, func(ctx context.Context, i int) error {
		sp := splits[i/len(grid)]
		rank := i % len(grid)
		e, err := scoreCell(ctx, series.Slice(sp.InSample), sp.ID, rank, grid[rank], sim, set)
		if err != nil {
			return err
		}
		cells[i] = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range cells {
		table.Add(c)
	}
	return table, nil
}

func scoreCell(ctx context.Context, segment models.Series, splitID, rank int, p models.ParameterPair, sim service.SignalSimulator, set Settings) (models.ScoreEntry, error) {
	score, err := sim.Simulate(ctx, segment, p, set.Direction, set.Frequency)
	if err != nil {
		pair := p
		return models.ScoreEntry{}, &SimulationError{Stage: StageInSample, SplitID: splitID, Pair: &pair, Err: err}
	}
	return models.ScoreEntry{SplitID: splitID, Pair: p, Rank: rank, Score: score}, nil
}
