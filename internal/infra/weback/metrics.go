package weback

import "github.com/prometheus/client_golang/prometheus"

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weback_http_attempts_total",
			Help: "HTTP attempts against the WeBack cloud by outcome",
		},
		[]string{"outcome"},
	)
	requestFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weback_http_request_failures_total",
			Help: "Requests that exhausted every attempt",
		},
	)
	requestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weback_http_attempt_duration_seconds",
			Help:    "Duration of single HTTP attempts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)
	loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weback_login_total",
			Help: "Session acquisitions by source (active, cache, login, failed, held_off)",
		},
		[]string{"source"},
	)
	sessionExpiry = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weback_session_expiry_timestamp_seconds",
			Help: "Expiry of the active session as a unix timestamp",
		},
	)
	protocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weback_protocol_errors_total",
			Help: "Non-success envelopes by operation",
		},
		[]string{"opt"},
	)
	registryDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weback_registry_devices",
			Help: "Devices known to the registry",
		},
	)
)

// MetricsCollectors returns collectors for the WeBack client.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		attemptsTotal,
		requestFailures,
		requestDuration,
		loginTotal,
		sessionExpiry,
		protocolErrors,
		registryDevices,
	}
}
