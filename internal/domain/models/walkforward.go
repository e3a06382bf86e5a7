package models

import (
	"fmt"
	"sort"
	"time"
)

// Placement decides which end of the series windows are anchored to.
type Placement string

const (
	PlacementLeftToRight Placement = "left_to_right"
	PlacementRightToLeft Placement = "right_to_left"
)

// Direction is the side a simulated strategy may trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
	DirectionBoth  Direction = "both"
)

// Frequency is the bar timeframe of a series, used for annualization.
type Frequency string

// Valid reports whether f is a supported bar timeframe. Empty means daily.
func (f Frequency) Valid() bool {
	switch f {
	case "", "1s", "1m", "5m", "15m", "1h", "4h", "1d":
		return true
	}
	return false
}

// Alternative is the alternative hypothesis of the out-of-sample vs in-sample comparison.
type Alternative string

const (
	AltOutSampleGreater Alternative = "out_sample_greater"
	AltTwoSided         Alternative = "two_sided"
	AltOutSampleLess    Alternative = "out_sample_less"
)

func (a Alternative) Valid() bool {
	switch a {
	case AltOutSampleGreater, AltTwoSided, AltOutSampleLess:
		return true
	}
	return false
}

// Split is one walk-forward window. InSample always precedes OutSample and the
// two together cover Window exactly.
type Split struct {
	ID        int
	Window    IndexRange
	Segments  []IndexRange
	InSample  IndexRange
	OutSample IndexRange
}

// SplitSet is ordered by ID, which matches the temporal order of window starts.
type SplitSet []Split

// ByID returns the split with the given id.
func (s SplitSet) ByID(id int) (Split, bool) {
	if id >= 0 && id < len(s) && s[id].ID == id {
		return s[id], true
	}
	for _, sp := range s {
		if sp.ID == id {
			return sp, true
		}
	}
	return Split{}, false
}

// ParameterPair holds the fast and slow window lengths of a crossover rule.
type ParameterPair struct {
	Fast int `json:"fast"`
	Slow int `json:"slow"`
}

func (p ParameterPair) String() string { return fmt.Sprintf("(%d,%d)", p.Fast, p.Slow) }

// ScoreEntry is one cell of the score table. Rank is the pair's position in grid
// enumeration order and drives tie-breaking.
type ScoreEntry struct {
	SplitID int
	Pair    ParameterPair
	Rank    int
	Score   float64
}

// ScoreTable groups score entries by split id.
type ScoreTable struct {
	bySplit map[int][]ScoreEntry
	n       int
}

func NewScoreTable() *ScoreTable {
	return &ScoreTable{bySplit: make(map[int][]ScoreEntry)}
}

func (t *ScoreTable) Add(e ScoreEntry) {
	t.bySplit[e.SplitID] = append(t.bySplit[e.SplitID], e)
	t.n++
}

// Entries returns a copy of one split's entries in insertion order.
func (t *ScoreTable) Entries(splitID int) []ScoreEntry {
	src := t.bySplit[splitID]
	out := make([]ScoreEntry, len(src))
	copy(out, src)
	return out
}

// SplitIDs returns the split ids present in the table in ascending order.
func (t *ScoreTable) SplitIDs() []int {
	ids := make([]int, 0, len(t.bySplit))
	for id := range t.bySplit {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Score looks up a single cell.
func (t *ScoreTable) Score(splitID int, p ParameterPair) (float64, bool) {
	for _, e := range t.bySplit[splitID] {
		if e.Pair == p {
			return e.Score, true
		}
	}
	return 0, false
}

func (t *ScoreTable) Len() int { return t.n }

// Rows flattens the table ordered by split id, then grid rank.
func (t *ScoreTable) Rows() []ScoreEntry {
	out := make([]ScoreEntry, 0, t.n)
	for _, id := range t.SplitIDs() {
		entries := t.Entries(id)
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
		out = append(out, entries...)
	}
	return out
}

// Selection is the best in-sample pair of one split.
type Selection struct {
	SplitID int
	Pair    ParameterPair
	Score   float64
}

type SelectionResult struct {
	Selected map[int]Selection
}

func NewSelectionResult() SelectionResult {
	return SelectionResult{Selected: make(map[int]Selection)}
}

func (r SelectionResult) Get(splitID int) (Selection, bool) {
	s, ok := r.Selected[splitID]
	return s, ok
}

func (r SelectionResult) SplitIDs() []int { return sortedKeys(r.Selected) }

// OutOfSampleScore is the score of a split's selected pair on its out-of-sample segment.
type OutOfSampleScore struct {
	SplitID int
	Pair    ParameterPair
	Score   float64
}

type ValidationResult struct {
	Scores map[int]OutOfSampleScore
}

func NewValidationResult() ValidationResult {
	return ValidationResult{Scores: make(map[int]OutOfSampleScore)}
}

func (r ValidationResult) Get(splitID int) (OutOfSampleScore, bool) {
	s, ok := r.Scores[splitID]
	return s, ok
}

func (r ValidationResult) SplitIDs() []int { return sortedKeys(r.Scores) }

// TestOutcome is what a two-sample test returns.
type TestOutcome struct {
	Statistic float64
	PValue    float64
	DF        float64
}

// ComparisonResult is the outcome of comparing in-sample best scores with
// out-of-sample scores. Significant means PValue < Threshold. OverfitSuspected
// is the overfitting reading of that decision for the chosen alternative.
type ComparisonResult struct {
	Statistic        float64
	PValue           float64
	DF               float64
	Threshold        float64
	Alternative      Alternative
	Method           string
	N                int
	SplitIDs         []int
	InSampleMean     float64
	OutSampleMean    float64
	Significant      bool
	OverfitSuspected bool
}

// HoldingBaseline is the buy-and-hold score of both segments of a split.
type HoldingBaseline struct {
	SplitID   int
	InSample  float64
	OutSample float64
}

// Stages at which a split can be dropped from the comparison.
const (
	StageSelection  = "selection"
	StageValidation = "validation"
)

// SkippedSplit records a split excluded from downstream aggregation.
type SkippedSplit struct {
	SplitID int    `json:"split_id"`
	Stage   string `json:"stage"`
	Reason  string `json:"reason"`
}

// RunResult bundles every table produced by one walk-forward run.
type RunResult struct {
	RunID      string
	Symbol     string
	StartedAt  time.Time
	Duration   time.Duration
	Splits     SplitSet
	Grid       []ParameterPair
	Scores     *ScoreTable
	Selection  SelectionResult
	Validation ValidationResult
	Comparison *ComparisonResult
	Holding    []HoldingBaseline
	Skipped    []SkippedSplit
}

func (r *RunResult) SkippedCount() int { return len(r.Skipped) }

func sortedKeys[V any](m map[int]V) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
