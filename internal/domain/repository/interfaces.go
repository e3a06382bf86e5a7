package repository

import (
	"context"

	"FinWalk/internal/domain/models"
)

type Metrics interface {
	RecordRun(status string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordEvaluations(stage string, n int)
	RecordSkippedSplits(stage string, n int)
	RecordCacheLookup(result string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRun(string)                {}
func (NopMetrics) RecordError(string)              {}
func (NopMetrics) RecordLatency(string, float64)   {}
func (NopMetrics) RecordEvaluations(string, int)   {}
func (NopMetrics) RecordSkippedSplits(string, int) {}
func (NopMetrics) RecordCacheLookup(string)        {}

// RunPublisher announces completed walk-forward runs to downstream consumers.
type RunPublisher interface {
	PublishRun(ctx context.Context, res *models.RunResult) error
}
