package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsStarted   *prometheus.CounterVec
	runsFinished  *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	simulatedDays prometheus.Counter
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		runsStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakcheck_validation_runs_started_total",
				Help: "Total number of validation runs started",
			},
			[]string{"instrument", "window"},
		),
		runsFinished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakcheck_validation_runs_finished_total",
				Help: "Total number of validation runs finished, by classification",
			},
			[]string{"instrument", "window", "classification"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "breakcheck_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "breakcheck_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		simulatedDays: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "breakcheck_simulated_days_total",
				Help: "Total number of trading days simulated",
			},
		),
	}
}

// RecordRunStarted counts a validation run entering the pipeline.
func (r *Recorder) RecordRunStarted(instrument, window string) {
	r.runsStarted.WithLabelValues(instrument, window).Inc()
}

// RecordRunFinished counts a completed run under its verdict classification.
func (r *Recorder) RecordRunFinished(instrument, window, classification string) {
	r.runsFinished.WithLabelValues(instrument, window, classification).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordSimulatedDays adds to the simulated-day counter.
func (r *Recorder) RecordSimulatedDays(n int) {
	r.simulatedDays.Add(float64(n))
}
