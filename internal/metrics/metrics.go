package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamAttempts counts every HTTP attempt by host and outcome
	// (ok, transport, status, decode, circuit_open).
	UpstreamAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nws_weather_upstream_attempts_total",
			Help: "Total number of upstream HTTP attempts",
		},
		[]string{"host", "outcome"},
	)

	// UpstreamRetries counts backoff waits taken before another attempt.
	UpstreamRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nws_weather_upstream_retries_total",
			Help: "Total number of upstream retries after a failed attempt",
		},
		[]string{"host"},
	)

	// UpstreamLatency tracks per-attempt latency.
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nws_weather_upstream_latency_seconds",
			Help:    "Upstream HTTP attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"host"},
	)

	// ObservationFallbacks counts fetches that kept the forecast baseline.
	ObservationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nws_weather_observation_fallbacks_total",
			Help: "Total number of fetches that fell back to forecast data",
		},
		[]string{"reason"},
	)

	// Requests counts resolve+fetch runs by result (ok, error).
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nws_weather_requests_total",
			Help: "Total number of weather requests",
		},
		[]string{"source", "result"},
	)
)
