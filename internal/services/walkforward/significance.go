package walkforward

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/domain/service"
)

const DefaultThreshold = 0.05

// minCompared is the smallest number of aligned splits the two-sample test accepts.
const minCompared = 2

// Tester compares in-sample best scores with out-of-sample scores.
//
// Out-of-sample scores are passed to the test as sample a, so the default
// alternative out_sample_greater asks whether out-of-sample did better than
// in-sample. A p-value at or above the threshold fails to show that and is
// read as an overfitting signal.
type Tester struct {
	test      service.TwoSampleTest
	threshold float64
}

// NewTester uses DefaultThreshold when threshold is zero.
func NewTester(test service.TwoSampleTest, threshold float64) *Tester {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return &Tester{test: test, threshold: threshold}
}

func (t *Tester) Threshold() float64 { return t.threshold }

// Align pairs each split's in-sample best score with its out-of-sample score
// by split id. Splits missing an out-of-sample score, or whose score is NaN,
// are returned as skipped.
func Align(selection models.SelectionResult, validation models.ValidationResult) (ids []int, in, out []float64, skipped []models.SkippedSplit) {
	for _, id := range selection.SplitIDs() {
		sel, _ := selection.Get(id)
		v, ok := validation.Get(id)
		switch {
		case !ok:
			skipped = append(skipped, models.SkippedSplit{SplitID: id, Stage: models.StageValidation, Reason: "no out-of-sample score"})
		case math.IsNaN(v.Score):
			skipped = append(skipped, models.SkippedSplit{SplitID: id, Stage: models.StageValidation, Reason: "out-of-sample score is NaN"})
		default:
			ids = append(ids, id)
			in = append(in, sel.Score)
			out = append(out, v.Score)
		}
	}
	return ids, in, out, skipped
}

// Compare runs the two-sample test on aligned vectors and interprets the p-value.
func (t *Tester) Compare(ctx context.Context, in, out []float64, alt models.Alternative) (*models.ComparisonResult, error) {
	if alt == "" {
		alt = models.AltOutSampleGreater
	}
	if !alt.Valid() {
		return nil, invalid("alternative", "unknown alternative %q", alt)
	}
	if !(t.threshold > 0 && t.threshold < 1) {
		return nil, invalid("significance_threshold", "must be in (0, 1), got %v", t.threshold)
	}
	if len(in) != len(out) {
		return nil, &MisalignedInputError{InSample: len(in), OutSample: len(out), Detail: "vectors differ in length"}
	}
	if len(in) < minCompared {
		return nil, &InsufficientDataError{
			Have:   len(in),
			Need:   minCompared,
			Unit:   "aligned splits",
			Detail: "the two-sample test needs at least two per sample",
		}
	}
	for i := range in {
		if math.IsNaN(in[i]) || math.IsNaN(out[i]) {
			return nil, &MisalignedInputError{InSample: len(in), OutSample: len(out), Detail: fmt.Sprintf("NaN at position %d", i)}
		}
	}

	outcome, err := t.test.Test(ctx, out, in, alt)
	if err != nil {
		return nil, fmt.Errorf("%s test: %w", t.test.Name(), err)
	}

	res := &models.ComparisonResult{
		Statistic:     outcome.Statistic,
		PValue:        outcome.PValue,
		DF:            outcome.DF,
		Threshold:     t.threshold,
		Alternative:   alt,
		Method:        t.test.Name(),
		N:             len(in),
		InSampleMean:  stat.Mean(in, nil),
		OutSampleMean: stat.Mean(out, nil),
		Significant:   outcome.PValue < t.threshold,
	}
	res.OverfitSuspected = overfitSuspected(res)
	return res, nil
}

func overfitSuspected(r *models.ComparisonResult) bool {
	switch r.Alternative {
	case models.AltOutSampleGreater:
		return !r.Significant
	case models.AltOutSampleLess:
		return r.Significant
	default:
		return r.Significant && r.OutSampleMean < r.InSampleMean
	}
}
