package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	"FinWalk/internal/services/walkforward"
	applogger "FinWalk/pkg/logger"
	"FinWalk/pkg/util"
)

// InlineSymbol names series posted without a symbol.
const InlineSymbol = "inline"

// WalkForwardUseCase resolves request parameters against configured defaults,
// loads the series and runs the engine.
type WalkForwardUseCase struct {
	series         *SeriesUseCase
	engine         *walkforward.Engine
	defaults       walkforward.RunParams
	maxEvaluations int
	publisher      domrepo.RunPublisher
	l              *applogger.Logger
}

func NewWalkForwardUseCase(series *SeriesUseCase, engine *walkforward.Engine, defaults walkforward.RunParams, maxEvaluations int) *WalkForwardUseCase {
	return &WalkForwardUseCase{
		series:         series,
		engine:         engine,
		defaults:       defaults,
		maxEvaluations: maxEvaluations,
		l:              applogger.Nop(),
	}
}

// SetLogger injects a structured logger.
func (uc *WalkForwardUseCase) SetLogger(l *applogger.Logger) {
	if l != nil {
		uc.l = l
	}
}

// SetPublisher enables run announcements. A nil publisher disables them.
func (uc *WalkForwardUseCase) SetPublisher(p domrepo.RunPublisher) { uc.publisher = p }

// Defaults returns a copy of the configured run parameters.
func (uc *WalkForwardUseCase) Defaults() walkforward.RunParams {
	d := uc.defaults
	d.Candidates = append([]int(nil), uc.defaults.Candidates...)
	return d
}

// Run executes one analysis. Inline points take precedence over the store.
func (uc *WalkForwardUseCase) Run(ctx context.Context, req *models.WalkForwardRequest) (*models.RunResult, error) {
	params, err := uc.Params(req)
	if err != nil {
		return nil, err
	}

	var series models.Series
	if len(req.Points) > 0 {
		series, err = InlineSeries(req.Symbol, req.Points)
	} else {
		series, err = uc.loadFromStore(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	res, err := uc.engine.Run(ctx, series, params)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, res)
	return res, nil
}

// RunSeries runs the engine on an already loaded series.
func (uc *WalkForwardUseCase) RunSeries(ctx context.Context, series models.Series, req *models.WalkForwardRequest) (*models.RunResult, error) {
	params, err := uc.Params(req)
	if err != nil {
		return nil, err
	}
	res, err := uc.engine.Run(ctx, series, params)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, res)
	return res, nil
}

func (uc *WalkForwardUseCase) loadFromStore(ctx context.Context, req *models.WalkForwardRequest) (models.Series, error) {
	p := LoadSeriesParams{
		Symbol:    req.Symbol,
		Timeframe: domrepo.NormalizeTimeframe(req.TF),
		Limit:     req.Limit,
	}
	if req.From != "" {
		t, ok := util.ParseTime(req.From)
		if !ok {
			return models.Series{}, &walkforward.InvalidConfigError{Field: "from", Detail: fmt.Sprintf("cannot parse %q", req.From)}
		}
		p.From = t
	}
	if req.To != "" {
		t, ok := util.ParseTime(req.To)
		if !ok {
			return models.Series{}, &walkforward.InvalidConfigError{Field: "to", Detail: fmt.Sprintf("cannot parse %q", req.To)}
		}
		p.To = t
	}
	if uc.series == nil {
		return models.Series{}, ErrNoStore
	}
	return uc.series.LoadSeries(ctx, p)
}

func (uc *WalkForwardUseCase) publish(ctx context.Context, res *models.RunResult) {
	if uc.publisher == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := uc.publisher.PublishRun(pctx, res); err != nil {
		uc.l.Warn("publish run failed",
			applogger.String("run_id", res.RunID),
			applogger.Error(err),
		)
	}
}

// Params merges request overrides into the configured defaults.
// Setting splits in a request clears the default stride and vice versa.
func (uc *WalkForwardUseCase) Params(req *models.WalkForwardRequest) (walkforward.RunParams, error) {
	p := uc.Defaults()
	if req == nil {
		return p, nil
	}
	if req.Splits > 0 && req.Stride > 0 {
		return p, &walkforward.InvalidConfigError{Field: "splits", Detail: "splits and stride are mutually exclusive"}
	}
	if req.WindowLen > 0 {
		p.WindowLen = req.WindowLen
	}
	if req.OOSLen > 0 {
		p.OOSLen = req.OOSLen
	}
	if len(req.Candidates) > 0 {
		p.Candidates = append([]int(nil), req.Candidates...)
	}
	if req.Splits > 0 {
		p.Count, p.Stride = req.Splits, 0
	}
	if req.Stride > 0 {
		p.Count, p.Stride = 0, req.Stride
	}
	if req.Placement != "" {
		p.Placement = models.Placement(req.Placement)
	}
	if req.Direction != "" {
		p.Direction = models.Direction(req.Direction)
	}
	switch {
	case req.Frequency != "":
		p.Frequency = models.Frequency(req.Frequency)
	case len(req.Points) == 0 && req.TF != "":
		p.Frequency = models.Frequency(domrepo.NormalizeTimeframe(req.TF))
	}
	if req.HigherIsBetter != nil {
		p.HigherIsBetter = *req.HigherIsBetter
	}
	if req.Threshold > 0 {
		p.Threshold = req.Threshold
	}
	if req.Alternative != "" {
		p.Alternative = models.Alternative(req.Alternative)
	}
	return p, nil
}

// PreviewGrid enumerates the grid for candidates (or the defaults) and
// reports the evaluation count for the given number of splits.
func (uc *WalkForwardUseCase) PreviewGrid(req *models.GridRequest) (*models.GridPreview, error) {
	candidates := uc.Defaults().Candidates
	if req != nil && req.Candidates != "" {
		parsed, err := util.ParseIntList(req.Candidates)
		if err != nil {
			return nil, &walkforward.InvalidConfigError{Field: "candidates", Detail: err.Error()}
		}
		candidates = parsed
	}
	pairs, err := walkforward.EnumeratePairs(candidates)
	if err != nil {
		return nil, err
	}

	splits := uc.defaults.Count
	if req != nil && req.Splits > 0 {
		splits = req.Splits
	}
	out := &models.GridPreview{
		Candidates:  distinctSorted(pairs),
		Pairs:       pairs,
		Count:       len(pairs),
		Limit:       uc.maxEvaluations,
		WithinLimit: true,
	}
	if splits > 0 {
		out.Evaluations = splits * len(pairs)
		out.WithinLimit = walkforward.CheckBudget(splits, len(pairs), uc.maxEvaluations) == nil
	}
	return out, nil
}

// InlineSeries builds a series from posted points.
func InlineSeries(symbol string, points []models.PointInput) (models.Series, error) {
	if symbol == "" {
		symbol = InlineSymbol
	}
	obs := make([]models.Observation, len(points))
	for i, p := range points {
		t, ok := util.ParseTime(p.Time)
		if !ok {
			return models.Series{}, &walkforward.InvalidConfigError{Field: "points", Detail: fmt.Sprintf("point %d: cannot parse time %q", i, p.Time)}
		}
		obs[i] = models.Observation{Time: t, Value: p.Value}
	}
	s, err := models.NewSeries(symbol, obs)
	if err != nil {
		return models.Series{}, &walkforward.InvalidConfigError{Field: "points", Detail: err.Error()}
	}
	return s, nil
}

func distinctSorted(pairs []models.ParameterPair) []int {
	seen := make(map[int]struct{})
	var out []int
	for _, p := range pairs {
		for _, v := range []int{p.Fast, p.Slow} {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Ints(out)
	return out
}
