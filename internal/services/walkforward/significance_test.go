package walkforward

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/services/stats"
)

func welch(t *testing.T) *stats.TTest {
	t.Helper()
	tt, err := stats.NewTTest(stats.MethodWelch)
	require.NoError(t, err)
	return tt
}

func TestAlign(t *testing.T) {
	sel := models.NewSelectionResult()
	sel.Selected[0] = models.Selection{SplitID: 0, Score: 1.0}
	sel.Selected[1] = models.Selection{SplitID: 1, Score: 2.0}
	sel.Selected[2] = models.Selection{SplitID: 2, Score: 3.0}
	sel.Selected[3] = models.Selection{SplitID: 3, Score: 4.0}

	val := models.NewValidationResult()
	val.Scores[0] = models.OutOfSampleScore{SplitID: 0, Score: 0.5}
	val.Scores[2] = models.OutOfSampleScore{SplitID: 2, Score: math.NaN()}
	val.Scores[3] = models.OutOfSampleScore{SplitID: 3, Score: -1.0}

	ids, in, out, skipped := Align(sel, val)
	assert.Equal(t, []int{0, 3}, ids)
	assert.Equal(t, []float64{1.0, 4.0}, in)
	assert.Equal(t, []float64{0.5, -1.0}, out)
	require.Len(t, skipped, 2)
	assert.Equal(t, 1, skipped[0].SplitID)
	assert.Equal(t, 2, skipped[1].SplitID)
	assert.Equal(t, models.StageValidation, skipped[1].Stage)
}

func TestCompareIdenticalVectors(t *testing.T) {
	v := []float64{0.3, 1.1, -0.4, 0.8}
	res, err := NewTester(welch(t), 0).Compare(context.Background(), v, v, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultThreshold, res.Threshold)
	assert.Equal(t, models.AltOutSampleGreater, res.Alternative)
	assert.InDelta(t, 0.0, res.Statistic, 1e-12)
	assert.GreaterOrEqual(t, res.PValue, 0.5-1e-12)
	assert.False(t, res.Significant)
	assert.True(t, res.OverfitSuspected)
	assert.Equal(t, 4, res.N)
}

func TestCompareOutSampleClearlyBetter(t *testing.T) {
	in := []float64{0.1, 0.2, 0.15, 0.05, 0.12}
	out := []float64{2.1, 2.3, 1.9, 2.0, 2.2}
	res, err := NewTester(welch(t), 0.05).Compare(context.Background(), in, out, models.AltOutSampleGreater)
	require.NoError(t, err)
	assert.Greater(t, res.Statistic, 0.0)
	assert.Less(t, res.PValue, 0.05)
	assert.True(t, res.Significant)
	assert.False(t, res.OverfitSuspected)
	assert.Greater(t, res.OutSampleMean, res.InSampleMean)
}

func TestCompareTwoSidedOverfit(t *testing.T) {
	in := []float64{2.1, 2.3, 1.9, 2.0, 2.2}
	out := []float64{0.1, 0.2, 0.15, 0.05, 0.12}
	res, err := NewTester(welch(t), 0.05).Compare(context.Background(), in, out, models.AltTwoSided)
	require.NoError(t, err)
	assert.True(t, res.Significant)
	assert.True(t, res.OverfitSuspected)

	less, err := NewTester(welch(t), 0.05).Compare(context.Background(), in, out, models.AltOutSampleLess)
	require.NoError(t, err)
	assert.True(t, less.Significant)
	assert.True(t, less.OverfitSuspected)
}

func TestCompareRejectsBadInput(t *testing.T) {
	tester := NewTester(welch(t), 0)
	ctx := context.Background()

	_, err := tester.Compare(ctx, []float64{1, 2, 3}, []float64{1, 2}, "")
	assert.ErrorIs(t, err, ErrMisalignedInput)

	_, err = tester.Compare(ctx, nil, nil, "")
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = tester.Compare(ctx, []float64{1.2}, []float64{0.4}, "")
	var ide *InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 1, ide.Have)
	assert.Equal(t, 2, ide.Need)
	assert.Equal(t, "insufficient_data", ErrorKind(err))

	_, err = tester.Compare(ctx, []float64{1, math.NaN()}, []float64{1, 2}, "")
	assert.ErrorIs(t, err, ErrMisalignedInput)

	_, err = tester.Compare(ctx, []float64{1, 2}, []float64{1, 2}, "sideways")
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewTester(welch(t), 1.5).Compare(ctx, []float64{1, 2}, []float64{1, 2}, "")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
