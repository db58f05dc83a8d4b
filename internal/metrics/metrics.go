// Package metrics provides Prometheus instrumentation for the weather proxy.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metric collectors for the proxy.
type Metrics struct {
	CallsTotal      *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	FallbacksTotal  *prometheus.CounterVec
	AttemptsPerCall prometheus.Histogram
	CallLatency     *prometheus.HistogramVec
	CallsInFlight   prometheus.Gauge
}

// New creates all collectors and registers them with reg. Production code
// passes prometheus.DefaultRegisterer; tests pass a fresh registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_calls_total",
			Help: "Total proxied upstream calls, partitioned by operation and outcome.",
		}, []string{"operation", "outcome"}),

		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_retries_total",
			Help: "Total retried attempts, partitioned by operation.",
		}, []string{"operation"}),

		FallbacksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "weather_fallbacks_total",
			Help: "Total responses served from the last-good cache, partitioned by operation.",
		}, []string{"operation"}),

		AttemptsPerCall: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weather_attempts_per_call",
			Help:    "Number of upstream attempts a single proxied call needed.",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		}),

		CallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "weather_call_latency_seconds",
			Help:    "End-to-end latency of a proxied call including backoff waits.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"operation"}),

		CallsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weather_calls_in_flight",
			Help: "Number of proxied calls currently executing.",
		}),
	}
}
