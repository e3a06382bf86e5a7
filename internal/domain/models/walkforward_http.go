package models

import (
	"math"
	"time"
)

// Requests and responses of the walk-forward HTTP endpoints.

// PointInput is one inline observation.
type PointInput struct {
	Time  string  `json:"time" validate:"required"`
	Value float64 `json:"value"`
}

// WalkForwardRequest runs an analysis either over stored candles
// (symbol, from, to, tf) or over inline points. Zero-valued tuning fields
// fall back to the server configuration.
type WalkForwardRequest struct {
	Symbol string       `json:"symbol" query:"symbol" validate:"required_without=Points"`
	From   string       `json:"from" query:"from"`
	To     string       `json:"to" query:"to"`
	Limit  int          `json:"limit" query:"limit" validate:"gte=0"`
	TF     string       `json:"tf" query:"tf" default:"1d" validate:"oneof=1s 1m 5m 15m 1h 4h 1d"`
	Points []PointInput `json:"points" validate:"omitempty,min=2,dive"`

	WindowLen      int     `json:"window_len" validate:"gte=0"`
	OOSLen         int     `json:"oos_len" validate:"gte=0"`
	Candidates     []int   `json:"candidates" validate:"omitempty,dive,gt=0"`
	Splits         int     `json:"splits" validate:"gte=0"`
	Stride         int     `json:"stride" validate:"gte=0"`
	Placement      string  `json:"placement" validate:"omitempty,oneof=left_to_right right_to_left"`
	Direction      string  `json:"direction" validate:"omitempty,oneof=long short both"`
	Frequency      string  `json:"frequency" validate:"omitempty,oneof=1s 1m 5m 15m 1h 4h 1d"`
	HigherIsBetter *bool   `json:"higher_is_better"`
	Threshold      float64 `json:"significance_threshold" validate:"gte=0,lt=1"`
	Alternative    string  `json:"alternative" validate:"omitempty,oneof=out_sample_greater two_sided out_sample_less"`
	IncludeScores  bool    `json:"include_scores" query:"include_scores"`
}

// GridRequest previews the parameter grid and evaluation count.
type GridRequest struct {
	Candidates string `query:"candidates" json:"candidates"`
	Splits     int    `query:"splits" json:"splits" validate:"gte=0"`
}

// GridPreview is the response of the grid endpoint.
type GridPreview struct {
	Candidates  []int           `json:"candidates"`
	Pairs       []ParameterPair `json:"pairs"`
	Count       int             `json:"count"`
	Evaluations int             `json:"evaluations,omitempty"`
	Limit       int             `json:"limit,omitempty"`
	WithinLimit bool            `json:"within_limit"`
}

// SplitReport describes one split and its outcome.
type SplitReport struct {
	ID             int            `json:"id"`
	WindowStart    int            `json:"window_start"`
	WindowEnd      int            `json:"window_end"`
	InSampleStart  int            `json:"in_sample_start"`
	InSampleEnd    int            `json:"in_sample_end"`
	OutSampleStart int            `json:"out_sample_start"`
	OutSampleEnd   int            `json:"out_sample_end"`
	Selected       *ParameterPair `json:"selected,omitempty"`
	InSampleScore  *float64       `json:"in_sample_score,omitempty"`
	OutSampleScore *float64       `json:"out_sample_score,omitempty"`
	HoldInSample   *float64       `json:"hold_in_sample,omitempty"`
	HoldOutSample  *float64       `json:"hold_out_sample,omitempty"`
	Skipped        string         `json:"skipped,omitempty"`
}

// ComparisonReport is the JSON form of ComparisonResult.
type ComparisonReport struct {
	Method           string   `json:"method"`
	Alternative      string   `json:"alternative"`
	N                int      `json:"n"`
	Statistic        *float64 `json:"statistic"`
	PValue           *float64 `json:"p_value"`
	DF               *float64 `json:"df"`
	Threshold        float64  `json:"threshold"`
	InSampleMean     *float64 `json:"in_sample_mean"`
	OutSampleMean    *float64 `json:"out_sample_mean"`
	Significant      bool     `json:"significant"`
	OverfitSuspected bool     `json:"overfit_suspected"`
}

// ScoreRow is one in-sample score table cell.
type ScoreRow struct {
	SplitID int      `json:"split_id"`
	Fast    int      `json:"fast"`
	Slow    int      `json:"slow"`
	Score   *float64 `json:"score"`
}

// RunReport is the JSON response of a walk-forward run. Non-finite scores are null.
type RunReport struct {
	RunID      string            `json:"run_id"`
	Symbol     string            `json:"symbol"`
	StartedAt  time.Time         `json:"started_at"`
	DurationMS int64             `json:"duration_ms"`
	GridSize   int               `json:"grid_size"`
	Splits     []SplitReport     `json:"splits"`
	Skipped    []SkippedSplit    `json:"skipped,omitempty"`
	Comparison *ComparisonReport `json:"comparison,omitempty"`
	Scores     []ScoreRow        `json:"scores,omitempty"`
}

// NewRunReport flattens a RunResult. Score rows are included only when
// withScores is set since the table grows with splits x pairs.
func NewRunReport(res *RunResult, withScores bool) *RunReport {
	rep := &RunReport{
		RunID:      res.RunID,
		Symbol:     res.Symbol,
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
		GridSize:   len(res.Grid),
		Splits:     make([]SplitReport, 0, len(res.Splits)),
		Skipped:    res.Skipped,
	}

	holding := make(map[int]HoldingBaseline, len(res.Holding))
	for _, h := range res.Holding {
		holding[h.SplitID] = h
	}
	skipped := make(map[int]string, len(res.Skipped))
	for _, s := range res.Skipped {
		skipped[s.SplitID] = s.Stage
	}

	for _, sp := range res.Splits {
		sr := SplitReport{
			ID:             sp.ID,
			WindowStart:    sp.Window.Start,
			WindowEnd:      sp.Window.End,
			InSampleStart:  sp.InSample.Start,
			InSampleEnd:    sp.InSample.End,
			OutSampleStart: sp.OutSample.Start,
			OutSampleEnd:   sp.OutSample.End,
			Skipped:        skipped[sp.ID],
		}
		if sel, ok := res.Selection.Get(sp.ID); ok {
			pair := sel.Pair
			sr.Selected = &pair
			sr.InSampleScore = finite(sel.Score)
		}
		if v, ok := res.Validation.Get(sp.ID); ok {
			sr.OutSampleScore = finite(v.Score)
		}
		if h, ok := holding[sp.ID]; ok {
			sr.HoldInSample = finite(h.InSample)
			sr.HoldOutSample = finite(h.OutSample)
		}
		rep.Splits = append(rep.Splits, sr)
	}

	if c := res.Comparison; c != nil {
		rep.Comparison = &ComparisonReport{
			Method:           c.Method,
			Alternative:      string(c.Alternative),
			N:                c.N,
			Statistic:        finite(c.Statistic),
			PValue:           finite(c.PValue),
			DF:               finite(c.DF),
			Threshold:        c.Threshold,
			InSampleMean:     finite(c.InSampleMean),
			OutSampleMean:    finite(c.OutSampleMean),
			Significant:      c.Significant,
			OverfitSuspected: c.OverfitSuspected,
		}
	}

	if withScores && res.Scores != nil {
		rows := res.Scores.Rows()
		rep.Scores = make([]ScoreRow, 0, len(rows))
		for _, e := range rows {
			rep.Scores = append(rep.Scores, ScoreRow{SplitID: e.SplitID, Fast: e.Pair.Fast, Slow: e.Pair.Slow, Score: finite(e.Score)})
		}
	}
	return rep
}

// RunEvent is the compact record published after each run.
type RunEvent struct {
	RunID            string    `json:"run_id"`
	Symbol           string    `json:"symbol"`
	StartedAt        time.Time `json:"started_at"`
	DurationMS       int64     `json:"duration_ms"`
	Splits           int       `json:"splits"`
	Compared         int       `json:"compared"`
	Skipped          int       `json:"skipped"`
	PValue           *float64  `json:"p_value"`
	Significant      bool      `json:"significant"`
	OverfitSuspected bool      `json:"overfit_suspected"`
}

func NewRunEvent(res *RunResult) RunEvent {
	ev := RunEvent{
		RunID:      res.RunID,
		Symbol:     res.Symbol,
		StartedAt:  res.StartedAt,
		DurationMS: res.Duration.Milliseconds(),
		Splits:     len(res.Splits),
		Skipped:    res.SkippedCount(),
	}
	if c := res.Comparison; c != nil {
		ev.Compared = c.N
		ev.PValue = finite(c.PValue)
		ev.Significant = c.Significant
		ev.OverfitSuspected = c.OverfitSuspected
	}
	return ev
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
