package walkforward

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	"FinWalk/internal/domain/service"
	applogger "FinWalk/pkg/logger"
)

// RunParams configures one walk-forward run. Exactly one of Count and Stride
// must be positive.
type RunParams struct {
	WindowLen      int
	OOSLen         int
	Candidates     []int
	Count          int
	Stride         int
	Placement      models.Placement
	Direction      models.Direction
	Frequency      models.Frequency
	HigherIsBetter bool
	Threshold      float64
	Alternative    models.Alternative
}

func (p RunParams) validate() error {
	if p.WindowLen <= 0 {
		return invalid("window_len", "must be positive, got %d", p.WindowLen)
	}
	if p.OOSLen <= 0 {
		return invalid("oos_len", "must be positive, got %d", p.OOSLen)
	}
	if p.OOSLen >= p.WindowLen {
		return invalid("oos_len", "must be less than window_len (%d >= %d)", p.OOSLen, p.WindowLen)
	}
	switch p.Direction {
	case models.DirectionLong, models.DirectionShort, models.DirectionBoth:
	default:
		return invalid("direction", "unknown direction %q", p.Direction)
	}
	if p.Count == 1 {
		return invalid("splits", "the comparison needs at least %d splits, got 1", minCompared)
	}
	if !p.Frequency.Valid() {
		return invalid("frequency", "unknown frequency %q", p.Frequency)
	}
	if p.Alternative != "" && !p.Alternative.Valid() {
		return invalid("alternative", "unknown alternative %q", p.Alternative)
	}
	if p.Threshold != 0 && !(p.Threshold > 0 && p.Threshold < 1) {
		return invalid("significance_threshold", "must be in (0, 1), got %v", p.Threshold)
	}
	return nil
}

// Engine runs the full walk-forward pipeline:
// split, grid evaluation on in-sample segments, per-split selection,
// out-of-sample validation and the significance comparison.
type Engine struct {
	sim            service.SignalSimulator
	holding        service.HoldingSimulator
	test           service.TwoSampleTest
	workers        int
	maxEvaluations int
	skipInvalid    bool
	l              *applogger.Logger
	metrics        domrepo.Metrics
}

// Option configures Engine.
type Option func(*Engine)

// WithWorkers bounds concurrent simulator calls.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithMaxEvaluations limits splits x pairs; zero disables the limit.
func WithMaxEvaluations(n int) Option {
	return func(e *Engine) { e.maxEvaluations = n }
}

// WithSkipInvalidSplits chooses between skipping splits without a valid
// selection (default) and aborting the run on the first one.
func WithSkipInvalidSplits(skip bool) Option {
	return func(e *Engine) { e.skipInvalid = skip }
}

// WithHoldingSimulator enables the buy-and-hold baseline.
func WithHoldingSimulator(h service.HoldingSimulator) Option {
	return func(e *Engine) { e.holding = h }
}

func WithLogger(l *applogger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.l = l
		}
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

func NewEngine(sim service.SignalSimulator, test service.TwoSampleTest, opts ...Option) *Engine {
	e := &Engine{
		sim:         sim,
		test:        test,
		workers:     1,
		skipInvalid: true,
		l:           applogger.Nop(),
		metrics:     domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes a walk-forward analysis over series.
func (e *Engine) Run(ctx context.Context, series models.Series, p RunParams) (*models.RunResult, error) {
	start := time.Now()
	res, err := e.run(ctx, series, p, start)
	e.metrics.RecordLatency("walkforward_run", time.Since(start).Seconds())
	if err != nil {
		kind := ErrorKind(err)
		e.metrics.RecordRun("error")
		e.metrics.RecordError(kind)
		e.l.Error("walkforward run failed",
			applogger.String("symbol", series.Symbol()),
			applogger.String("kind", kind),
			applogger.Error(err),
		)
		return nil, err
	}
	e.metrics.RecordRun("ok")
	return res, nil
}

func (e *Engine) run(ctx context.Context, series models.Series, p RunParams, start time.Time) (*models.RunResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	set := Settings{Direction: p.Direction, Frequency: p.Frequency}

	splits, err := SplitSeries(series, SplitConfig{
		WindowLen:   p.WindowLen,
		SegmentLens: []int{p.OOSLen},
		Placement:   p.Placement,
		Count:       p.Count,
		Stride:      p.Stride,
	})
	if err != nil {
		return nil, err
	}
	if len(splits) < minCompared {
		return nil, &InsufficientDataError{
			Have:   series.Len(),
			Need:   p.WindowLen + p.Stride,
			Detail: fmt.Sprintf("%d split(s) fit, the comparison needs at least %d", len(splits), minCompared),
		}
	}
	grid, err := EnumeratePairs(p.Candidates)
	if err != nil {
		return nil, err
	}
	if err := CheckBudget(len(splits), len(grid), e.maxEvaluations); err != nil {
		return nil, err
	}

	res := &models.RunResult{
		RunID:     uuid.NewString(),
		Symbol:    series.Symbol(),
		StartedAt: start,
		Splits:    splits,
		Grid:      grid,
	}
	rl := e.l.With(applogger.String("run_id", res.RunID), applogger.String("symbol", res.Symbol))
	rl.Info("walkforward run started",
		applogger.Int("observations", series.Len()),
		applogger.Int("splits", len(splits)),
		applogger.Int("pairs", len(grid)),
		applogger.Int("workers", e.workers),
	)

	table, err := EvaluateGrid(ctx, series, splits, grid, e.sim, set, e.workers)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordEvaluations(StageInSample, table.Len())
	res.Scores = table

	selection, failed := Select(table, splits, p.HigherIsBetter)
	for _, f := range failed {
		if !e.skipInvalid {
			return nil, f
		}
		res.Skipped = append(res.Skipped, models.SkippedSplit{SplitID: f.SplitID, Stage: models.StageSelection, Reason: f.Error()})
	}
	res.Selection = selection
	for _, id := range selection.SplitIDs() {
		sel, _ := selection.Get(id)
		rl.Debug("split selected",
			applogger.Int("split_id", id),
			applogger.String("pair", sel.Pair.String()),
			applogger.Float64("score", sel.Score),
		)
	}

	validation, err := Validate(ctx, series, splits, selection, e.sim, set, e.workers)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordEvaluations(StageOutSample, len(validation.Scores))
	res.Validation = validation

	if e.holding != nil {
		res.Holding, err = HoldingBaselines(ctx, series, splits, e.holding, p.Frequency, e.workers)
		if err != nil {
			return nil, err
		}
		e.metrics.RecordEvaluations(StageHolding, 2*len(res.Holding))
	}

	ids, in, out, skipped := Align(selection, validation)
	res.Skipped = append(res.Skipped, skipped...)
	sort.SliceStable(res.Skipped, func(i, j int) bool { return res.Skipped[i].SplitID < res.Skipped[j].SplitID })
	e.recordSkipped(rl, res)

	cmp, err := NewTester(e.test, p.Threshold).Compare(ctx, in, out, p.Alternative)
	if err != nil {
		return nil, err
	}
	cmp.SplitIDs = ids
	res.Comparison = cmp
	res.Duration = time.Since(start)

	rl.Info("walkforward run complete",
		applogger.Int("splits", len(splits)),
		applogger.Int("compared", cmp.N),
		applogger.Int("skipped", res.SkippedCount()),
		applogger.Float64("p_value", cmp.PValue),
		applogger.Bool("significant", cmp.Significant),
		applogger.Bool("overfit_suspected", cmp.OverfitSuspected),
		applogger.Duration("duration_ms", res.Duration),
	)
	return res, nil
}

func (e *Engine) recordSkipped(rl *applogger.Logger, res *models.RunResult) {
	byStage := make(map[string]int)
	for _, s := range res.Skipped {
		byStage[s.Stage]++
		rl.Warn("split skipped",
			applogger.Int("split_id", s.SplitID),
			applogger.String("stage", s.Stage),
			applogger.String("reason", s.Reason),
		)
	}
	for stage, n := range byStage {
		e.metrics.RecordSkippedSplits(stage, n)
	}
}

// ErrorKind maps an engine error to a short label for metrics and responses.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrEmptyGrid):
		return "empty_grid"
	case errors.Is(err, ErrGridTooLarge):
		return "grid_too_large"
	case errors.Is(err, ErrNoValidSelection):
		return "no_valid_selection"
	case errors.Is(err, ErrMisalignedInput):
		return "misaligned_input"
	case errors.Is(err, ErrInvalidConfig):
		return "invalid_config"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrSimulation):
		return "simulation"
	default:
		return "internal"
	}
}
