package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	queries  *prometheus.CounterVec
	searches *prometheus.CounterVec
	steps    *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New registers the recorder's collectors with reg. A nil reg uses the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		queries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_overlap_queries_total",
				Help: "Overlap queries by outcome status",
			},
			[]string{"status"},
		),
		searches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_window_searches_total",
				Help: "Per-body window searches by outcome",
			},
			[]string{"body", "outcome"},
		),
		steps: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_scan_steps_total",
				Help: "Longitude samples taken by window searches",
			},
			[]string{"body"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "astro_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "astro_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),
	}
}

// RecordQuery counts one finished overlap query.
func (r *Recorder) RecordQuery(status string) {
	r.queries.WithLabelValues(status).Inc()
}

// RecordSearch counts one window search and the samples it took.
func (r *Recorder) RecordSearch(body, outcome string, steps int64) {
	r.searches.WithLabelValues(body, outcome).Inc()
	if steps > 0 {
		r.steps.WithLabelValues(body).Add(float64(steps))
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordQuery(string)                 {}
func (Nop) RecordSearch(string, string, int64) {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordLatency(string, float64)      {}
