package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	evaluations  *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwalk_runs_total",
				Help: "Walk-forward runs by outcome",
			},
			[]string{"status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwalk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finwalk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwalk_simulations_total",
				Help: "Simulator calls by stage",
			},
			[]string{"stage"},
		),
		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwalk_skipped_splits_total",
				Help: "Splits excluded from the comparison by stage",
			},
			[]string{"stage"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finwalk_score_cache_lookups_total",
				Help: "Score cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordEvaluations(stage string, n int) {
	r.evaluations.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) RecordSkippedSplits(stage string, n int) {
	r.skipped.WithLabelValues(stage).Add(float64(n))
}

// RecordCacheLookup records "hit", "miss" or "error".
func (r *Recorder) RecordCacheLookup(result string) {
	r.cacheLookups.WithLabelValues(result).Inc()
}
