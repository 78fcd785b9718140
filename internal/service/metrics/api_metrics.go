package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	APILatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "astro",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of overlap API endpoints",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	APIErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astro",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by overlap API endpoint and kind",
		},
		[]string{"endpoint", "kind"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "astro",
			Subsystem: "api",
			Name:      "cache_lookups_total",
			Help:      "Overlap response cache lookups by result",
		},
		[]string{"result"},
	)

	RateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "astro",
			Subsystem: "api",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the overlap rate limiter",
		},
	)

	StreamSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "astro",
			Subsystem: "api",
			Name:      "stream_sessions",
			Help:      "Open websocket trace streams",
		},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(APILatency, APIErrors, CacheLookups, RateLimited, StreamSessions)
	})
}
