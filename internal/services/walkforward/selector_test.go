package walkforward

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
)

func entries(splitID int, scores ...float64) []models.ScoreEntry {
	out := make([]models.ScoreEntry, len(scores))
	for i, s := range scores {
		out[i] = models.ScoreEntry{SplitID: splitID, Pair: models.ParameterPair{Fast: i + 1, Slow: i + 2}, Rank: i, Score: s}
	}
	return out
}

func TestSelectBestIgnoresNaN(t *testing.T) {
	sel, err := SelectBest(0, entries(0, math.NaN(), 0.4, math.NaN(), 0.9, 0.1), true)
	require.NoError(t, err)
	assert.Equal(t, models.ParameterPair{Fast: 4, Slow: 5}, sel.Pair)
	assert.Equal(t, 0.9, sel.Score)
}

func TestSelectBestLowerIsBetter(t *testing.T) {
	sel, err := SelectBest(0, entries(0, 0.4, -0.2, math.NaN(), 0.9), false)
	require.NoError(t, err)
	assert.Equal(t, -0.2, sel.Score)
	assert.Equal(t, models.ParameterPair{Fast: 2, Slow: 3}, sel.Pair)
}

func TestSelectBestTieUsesLowestRank(t *testing.T) {
	es := entries(0, 0.5, 1.0, 0.2, 1.0)
	forward, err := SelectBest(0, es, true)
	require.NoError(t, err)

	reversed := make([]models.ScoreEntry, len(es))
	for i, e := range es {
		reversed[len(es)-1-i] = e
	}
	backward, err := SelectBest(0, reversed, true)
	require.NoError(t, err)

	assert.Equal(t, models.ParameterPair{Fast: 2, Slow: 3}, forward.Pair)
	assert.Equal(t, forward, backward)
}

func TestSelectBestAllNaN(t *testing.T) {
	_, err := SelectBest(3, entries(3, math.NaN(), math.NaN()), true)
	assert.ErrorIs(t, err, ErrNoValidSelection)

	_, err = SelectBest(4, nil, true)
	assert.ErrorIs(t, err, ErrNoValidSelection)
}

func TestSelect(t *testing.T) {
	table := models.NewScoreTable()
	for _, e := range entries(0, 0.1, 0.3) {
		table.Add(e)
	}
	for _, e := range entries(1, math.NaN(), math.NaN()) {
		table.Add(e)
	}
	for _, e := range entries(2, 0.7, 0.2) {
		table.Add(e)
	}
	splits := models.SplitSet{{ID: 0}, {ID: 1}, {ID: 2}}

	res, failed := Select(table, splits, true)
	assert.Equal(t, []int{0, 2}, res.SplitIDs())
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].SplitID)
	assert.Equal(t, 2, failed[0].NaN)

	sel, ok := res.Get(2)
	require.True(t, ok)
	assert.Equal(t, 0.7, sel.Score)
}
