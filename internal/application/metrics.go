package application

import "github.com/prometheus/client_golang/prometheus"

var (
	pollTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weback_device_poll_total",
			Help: "Device refreshes by result",
		},
		[]string{"result"},
	)
	sinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weback_sink_publish_failures_total",
			Help: "Failed state publications by sink",
		},
		[]string{"sink"},
	)
	lastCycle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "weback_poll_last_cycle_timestamp_seconds",
			Help: "Completion time of the last poll cycle",
		},
	)
)

// MetricsCollectors returns collectors for the poller.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		pollTotal,
		sinkFailures,
		lastCycle,
	}
}
