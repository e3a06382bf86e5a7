package walkforward

import (
	"math"

	"FinWalk/internal/domain/models"
)

// SelectBest reduces one split's entries to its best pair. NaN scores never
// compete; equal scores resolve to the lower grid rank whatever the entry order.
func SelectBest(splitID int, entries []models.ScoreEntry, higherIsBetter bool) (models.Selection, error) {
	best := -1
	nan := 0
	for i, e := range entries {
		if math.IsNaN(e.Score) {
			nan++
			continue
		}
		if best < 0 || better(e, entries[best], higherIsBetter) {
			best = i
		}
	}
	if best < 0 {
		return models.Selection{}, &NoValidSelectionError{SplitID: splitID, Entries: len(entries), NaN: nan}
	}
	return models.Selection{SplitID: splitID, Pair: entries[best].Pair, Score: entries[best].Score}, nil
}

func better(a, b models.ScoreEntry, higherIsBetter bool) bool {
	if a.Score != b.Score {
		if higherIsBetter {
			return a.Score > b.Score
		}
		return a.Score < b.Score
	}
	return a.Rank < b.Rank
}

// Select picks the best pair of every split. Splits whose group is empty or
// all NaN are left out of the result and returned as errors in split order;
// the caller decides whether to skip them or abort.
func Select(table *models.ScoreTable, splits models.SplitSet, higherIsBetter bool) (models.SelectionResult, []*NoValidSelectionError) {
	res := models.NewSelectionResult()
	var failed []*NoValidSelectionError
	for _, sp := range splits {
		sel, err := SelectBest(sp.ID, table.Entries(sp.ID), higherIsBetter)
		if err != nil {
			failed = append(failed, err.(*NoValidSelectionError))
			continue
		}
		res.Selected[sp.ID] = sel
	}
	return res, failed
}
