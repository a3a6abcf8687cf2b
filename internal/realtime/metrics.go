package realtime

import "github.com/prometheus/client_golang/prometheus"

var (
	// connectionsGauge tracks the number of currently registered connections.
	connectionsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_connections",
			Help: "Number of live registered connections.",
		},
	)

	// groupsGauge tracks the number of non-empty groups.
	groupsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "realtime_groups",
			Help: "Number of non-empty connection groups.",
		},
	)

	// sendsTotal counts outbound sends by fan-out scope and outcome.
	// Scope is one of connection|user|group|all; outcome is ok|write_failed|dead.
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_sends_total",
			Help: "Total outbound message sends by scope and outcome.",
		},
		[]string{"scope", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(connectionsGauge, groupsGauge, sendsTotal)
}
