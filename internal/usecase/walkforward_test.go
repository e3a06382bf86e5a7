package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/domain/service"
	"FinWalk/internal/services/stats"
	"FinWalk/internal/services/walkforward"
)

type fakePublisher struct {
	runs []*models.RunResult
	err  error
}

func (p *fakePublisher) PublishRun(_ context.Context, res *models.RunResult) error {
	p.runs = append(p.runs, res)
	return p.err
}

func spreadSim() service.SignalSimulator {
	return service.SignalSimulatorFunc(func(_ context.Context, segment models.Series, p models.ParameterPair, _ models.Direction, _ models.Frequency) (float64, error) {
		return segment.At(0).Value/100 - float64(p.Slow-p.Fast)/100, nil
	})
}

func testDefaults() walkforward.RunParams {
	return walkforward.RunParams{
		WindowLen:      20,
		OOSLen:         5,
		Candidates:     []int{10, 20, 30},
		Count:          3,
		Placement:      models.PlacementRightToLeft,
		Direction:      models.DirectionLong,
		Frequency:      "1d",
		HigherIsBetter: true,
		Threshold:      0.05,
		Alternative:    models.AltOutSampleGreater,
	}
}

func newWalkForward(t *testing.T, store *fakeStore) *WalkForwardUseCase {
	t.Helper()
	tt, err := stats.NewTTest(stats.MethodWelch)
	require.NoError(t, err)
	engine := walkforward.NewEngine(spreadSim(), tt, walkforward.WithWorkers(2))
	var series *SeriesUseCase
	if store != nil {
		series = NewSeriesUseCase(store, 1000)
	}
	return NewWalkForwardUseCase(series, engine, testDefaults(), 1000)
}

func inlinePoints(n int) []models.PointInput {
	out := make([]models.PointInput, n)
	for i := range out {
		out[i] = models.PointInput{Time: day0.AddDate(0, 0, i).Format(time.RFC3339), Value: 100 + float64(i)}
	}
	return out
}

func TestRunInline(t *testing.T) {
	uc := newWalkForward(t, nil)
	pub := &fakePublisher{}
	uc.SetPublisher(pub)

	res, err := uc.Run(context.Background(), &models.WalkForwardRequest{Points: inlinePoints(40)})
	require.NoError(t, err)
	assert.Equal(t, InlineSymbol, res.Symbol)
	assert.Len(t, res.Splits, 3)
	assert.Equal(t, 3, res.Comparison.N)
	require.Len(t, pub.runs, 1)
	assert.Equal(t, res.RunID, pub.runs[0].RunID)
}

func TestRunPublishFailureDoesNotFailRun(t *testing.T) {
	uc := newWalkForward(t, nil)
	uc.SetPublisher(&fakePublisher{err: errors.New("broker down")})

	_, err := uc.Run(context.Background(), &models.WalkForwardRequest{Symbol: "SPY", Points: inlinePoints(40)})
	assert.NoError(t, err)
}

func TestRunFromStore(t *testing.T) {
	store := &fakeStore{candles: dailyCandles("BTCUSDT", 60)}
	uc := newWalkForward(t, store)

	res, err := uc.Run(context.Background(), &models.WalkForwardRequest{Symbol: "BTCUSDT", TF: "1d", Limit: 45})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", res.Symbol)
	assert.Equal(t, 45, store.latestN)
	assert.Equal(t, 45, res.Splits[len(res.Splits)-1].Window.End)
}

func TestRunErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newWalkForward(t, nil).Run(ctx, &models.WalkForwardRequest{Symbol: "BTCUSDT"})
	assert.ErrorIs(t, err, ErrNoStore)

	uc := newWalkForward(t, &fakeStore{})
	_, err = uc.Run(ctx, &models.WalkForwardRequest{Symbol: "BTCUSDT", From: "yesterday"})
	var ic *walkforward.InvalidConfigError
	require.True(t, errors.As(err, &ic))
	assert.Equal(t, "from", ic.Field)

	_, err = uc.Run(ctx, &models.WalkForwardRequest{Symbol: "BTCUSDT"})
	assert.ErrorIs(t, err, ErrNoData)

	_, err = uc.Run(ctx, &models.WalkForwardRequest{Points: inlinePoints(10)})
	assert.ErrorIs(t, err, walkforward.ErrInsufficientData)

	points := inlinePoints(30)
	points[4] = points[3]
	_, err = uc.Run(ctx, &models.WalkForwardRequest{Points: points})
	require.True(t, errors.As(err, &ic))
	assert.Equal(t, "points", ic.Field)
}

func TestParams(t *testing.T) {
	uc := newWalkForward(t, nil)
	lower := false

	p, err := uc.Params(&models.WalkForwardRequest{
		WindowLen:      50,
		OOSLen:         10,
		Candidates:     []int{5, 15},
		Stride:         7,
		Direction:      "both",
		TF:             "1h",
		HigherIsBetter: &lower,
		Threshold:      0.1,
		Alternative:    "two_sided",
	})
	require.NoError(t, err)
	assert.Equal(t, 50, p.WindowLen)
	assert.Equal(t, 10, p.OOSLen)
	assert.Equal(t, []int{5, 15}, p.Candidates)
	assert.Equal(t, 0, p.Count)
	assert.Equal(t, 7, p.Stride)
	assert.Equal(t, models.DirectionBoth, p.Direction)
	assert.Equal(t, models.Frequency("1h"), p.Frequency)
	assert.False(t, p.HigherIsBetter)
	assert.Equal(t, 0.1, p.Threshold)
	assert.Equal(t, models.AltTwoSided, p.Alternative)
	assert.Equal(t, models.PlacementRightToLeft, p.Placement)

	// inline points keep the configured frequency unless one is given
	p, err = uc.Params(&models.WalkForwardRequest{TF: "1h", Points: inlinePoints(2)})
	require.NoError(t, err)
	assert.Equal(t, models.Frequency("1d"), p.Frequency)

	_, err = uc.Params(&models.WalkForwardRequest{Splits: 3, Stride: 2})
	assert.ErrorIs(t, err, walkforward.ErrInvalidConfig)
}

func TestParamsDoNotLeakIntoDefaults(t *testing.T) {
	uc := newWalkForward(t, nil)
	p, err := uc.Params(nil)
	require.NoError(t, err)
	p.Candidates[0] = 999
	assert.Equal(t, 10, uc.Defaults().Candidates[0])
}

func TestPreviewGrid(t *testing.T) {
	uc := newWalkForward(t, nil)

	preview, err := uc.PreviewGrid(&models.GridRequest{Candidates: "30, 10,20,10"})
	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, preview.Candidates)
	assert.Equal(t, 3, preview.Count)
	assert.Equal(t, 9, preview.Evaluations)
	assert.True(t, preview.WithinLimit)

	big, err := uc.PreviewGrid(&models.GridRequest{Splits: 200})
	require.NoError(t, err)
	assert.Equal(t, 600, big.Evaluations)
	assert.True(t, big.WithinLimit)

	huge, err := uc.PreviewGrid(&models.GridRequest{Splits: 500})
	require.NoError(t, err)
	assert.False(t, huge.WithinLimit)

	_, err = uc.PreviewGrid(&models.GridRequest{Candidates: "10,x"})
	assert.ErrorIs(t, err, walkforward.ErrInvalidConfig)

	_, err = uc.PreviewGrid(&models.GridRequest{Candidates: "10"})
	assert.ErrorIs(t, err, walkforward.ErrEmptyGrid)
}

func TestInlineSeries(t *testing.T) {
	s, err := InlineSeries("AAPL", []models.PointInput{
		{Time: "2024-01-01", Value: 1},
		{Time: "2024-01-02T00:00:00Z", Value: 2},
		{Time: "1704326400", Value: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", s.Symbol())
	assert.Equal(t, []float64{1, 2, 3}, s.Values())

	_, err = InlineSeries("", []models.PointInput{{Time: "soon", Value: 1}})
	assert.ErrorIs(t, err, walkforward.ErrInvalidConfig)
}
