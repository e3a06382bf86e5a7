package walkforward

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
)

func TestEnumeratePairs(t *testing.T) {
	pairs, err := EnumeratePairs([]int{30, 10, 20, 10})
	require.NoError(t, err)
	assert.Equal(t, []models.ParameterPair{
		{Fast: 10, Slow: 20},
		{Fast: 10, Slow: 30},
		{Fast: 20, Slow: 30},
	}, pairs)
}

func TestEnumeratePairsDoesNotMutateInput(t *testing.T) {
	in := []int{50, 5, 20}
	_, err := EnumeratePairs(in)
	require.NoError(t, err)
	assert.Equal(t, []int{50, 5, 20}, in)
}

func TestEnumeratePairsFastBelowSlow(t *testing.T) {
	pairs, err := EnumeratePairs([]int{5, 10, 20, 50, 100, 200})
	require.NoError(t, err)
	assert.Len(t, pairs, PairCount(6))
	for _, p := range pairs {
		assert.Less(t, p.Fast, p.Slow)
	}
}

func TestEnumeratePairsEmptyGrid(t *testing.T) {
	for _, in := range [][]int{nil, {10}, {10, 10}} {
		_, err := EnumeratePairs(in)
		var ege *EmptyGridError
		require.True(t, errors.As(err, &ege), "input %v", in)
		assert.Equal(t, len(uniqueInts(in)), ege.Candidates)
	}
}

func TestEnumeratePairsRejectsNonPositive(t *testing.T) {
	_, err := EnumeratePairs([]int{0, 10, 20})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPairCount(t *testing.T) {
	assert.Equal(t, 0, PairCount(0))
	assert.Equal(t, 0, PairCount(1))
	assert.Equal(t, 1, PairCount(2))
	assert.Equal(t, 15, PairCount(6))
}

func TestCheckBudget(t *testing.T) {
	assert.NoError(t, CheckBudget(10, 15, 150))
	assert.NoError(t, CheckBudget(10, 15, 0))

	err := CheckBudget(10, 15, 149)
	var gtl *GridTooLargeError
	require.True(t, errors.As(err, &gtl))
	assert.Equal(t, 150, gtl.Evaluations)
	assert.Equal(t, 149, gtl.Limit)
	assert.ErrorIs(t, err, ErrGridTooLarge)
}

func uniqueInts(in []int) map[int]struct{} {
	out := make(map[int]struct{}, len(in))
	for _, v := range in {
		out[v] = struct{}{}
	}
	return out
}
