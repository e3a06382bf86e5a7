package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *RunResult {
	splits := SplitSet{
		{ID: 0, Window: IndexRange{0, 10}, InSample: IndexRange{0, 8}, OutSample: IndexRange{8, 10}},
		{ID: 1, Window: IndexRange{10, 20}, InSample: IndexRange{10, 18}, OutSample: IndexRange{18, 20}},
		{ID: 2, Window: IndexRange{20, 30}, InSample: IndexRange{20, 28}, OutSample: IndexRange{28, 30}},
	}
	pair := ParameterPair{Fast: 5, Slow: 10}

	scores := NewScoreTable()
	scores.Add(ScoreEntry{SplitID: 1, Pair: pair, Rank: 0, Score: 0.7})
	scores.Add(ScoreEntry{SplitID: 0, Pair: pair, Rank: 0, Score: 0.4})
	scores.Add(ScoreEntry{SplitID: 2, Pair: pair, Rank: 0, Score: math.NaN()})

	sel := NewSelectionResult()
	sel.Selected[0] = Selection{SplitID: 0, Pair: pair, Score: 0.4}
	sel.Selected[1] = Selection{SplitID: 1, Pair: pair, Score: 0.7}

	val := NewValidationResult()
	val.Scores[0] = OutOfSampleScore{SplitID: 0, Pair: pair, Score: 0.1}
	val.Scores[1] = OutOfSampleScore{SplitID: 1, Pair: pair, Score: math.NaN()}

	res := &RunResult{
		RunID:      "run-1",
		Symbol:     "BTCUSDT",
		StartedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Duration:   1500 * time.Millisecond,
		Splits:     splits,
		Grid:       []ParameterPair{pair},
		Scores:     scores,
		Selection:  sel,
		Validation: val,
		Holding:    []HoldingBaseline{{SplitID: 0, InSample: 1.2, OutSample: math.Inf(1)}},
	}
	res.Skipped = []SkippedSplit{
		{SplitID: 1, Stage: StageValidation, Reason: "out-of-sample score is NaN"},
		{SplitID: 2, Stage: StageSelection, Reason: "all NaN"},
	}
	res.Comparison = &ComparisonResult{PValue: 0.3, Statistic: math.NaN(), Threshold: 0.05, Alternative: AltOutSampleGreater, N: 1, OverfitSuspected: true}
	return res
}

func TestNewRunReport(t *testing.T) {
	rep := NewRunReport(sampleResult(), false)

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, int64(1500), rep.DurationMS)
	assert.Equal(t, 1, rep.GridSize)
	assert.Nil(t, rep.Scores)
	require.Len(t, rep.Splits, 3)

	s0 := rep.Splits[0]
	require.NotNil(t, s0.Selected)
	assert.Equal(t, 0.4, *s0.InSampleScore)
	assert.Equal(t, 0.1, *s0.OutSampleScore)
	assert.Equal(t, 1.2, *s0.HoldInSample)
	assert.Nil(t, s0.HoldOutSample)
	assert.Empty(t, s0.Skipped)

	s1 := rep.Splits[1]
	assert.Nil(t, s1.OutSampleScore)
	assert.Equal(t, StageValidation, s1.Skipped)

	s2 := rep.Splits[2]
	assert.Nil(t, s2.Selected)
	assert.Equal(t, StageSelection, s2.Skipped)

	require.NotNil(t, rep.Comparison)
	assert.Nil(t, rep.Comparison.Statistic)
	assert.Equal(t, 0.3, *rep.Comparison.PValue)
	assert.True(t, rep.Comparison.OverfitSuspected)
}

func TestNewRunReportScores(t *testing.T) {
	rep := NewRunReport(sampleResult(), true)
	require.Len(t, rep.Scores, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{rep.Scores[0].SplitID, rep.Scores[1].SplitID, rep.Scores[2].SplitID})
	assert.Nil(t, rep.Scores[2].Score)
}

func TestNewRunEvent(t *testing.T) {
	ev := NewRunEvent(sampleResult())
	assert.Equal(t, "BTCUSDT", ev.Symbol)
	assert.Equal(t, 3, ev.Splits)
	assert.Equal(t, 1, ev.Compared)
	assert.Equal(t, 2, ev.Skipped)
	require.NotNil(t, ev.PValue)
	assert.True(t, ev.OverfitSuspected)
}
