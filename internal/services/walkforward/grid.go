package walkforward

import (
	"slices"

	"FinWalk/internal/domain/models"
)

// EnumeratePairs returns every 2-combination of the distinct candidates with
// Fast < Slow, in lexicographic order. That order is the tie-break basis of
// the selector.
func EnumeratePairs(candidates []int) ([]models.ParameterPair, error) {
	uniq := slices.Clone(candidates)
	for _, c := range uniq {
		if c <= 0 {
			return nil, invalid("candidates", "window lengths must be positive, got %d", c)
		}
	}
	slices.Sort(uniq)
	uniq = slices.Compact(uniq)
	if len(uniq) < 2 {
		return nil, &EmptyGridError{Candidates: len(uniq)}
	}

	pairs := make([]models.ParameterPair, 0, PairCount(len(uniq)))
	for i := 0; i < len(uniq); i++ {
		for j := i + 1; j < len(uniq); j++ {
			pairs = append(pairs, models.ParameterPair{Fast: uniq[i], Slow: uniq[j]})
		}
	}
	return pairs, nil
}

// PairCount is C(k, 2).
func PairCount(k int) int {
	if k < 2 {
		return 0
	}
	return k * (k - 1) / 2
}

// CheckBudget fails when the cross product of splits and pairs exceeds limit.
// A non-positive limit disables the check.
func CheckBudget(splits, pairs, limit int) error {
	total := splits * pairs
	if limit > 0 && total > limit {
		return &GridTooLargeError{Splits: splits, Pairs: pairs, Evaluations: total, Limit: limit}
	}
	return nil
}
