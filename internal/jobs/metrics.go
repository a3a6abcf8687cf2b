package jobs

import "github.com/prometheus/client_golang/prometheus"

var (
	// jobsScheduled counts jobs placed in the pending store, by type.
	jobsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_scheduled_total",
			Help: "Total jobs placed in the pending store.",
		},
		[]string{"type"},
	)

	// jobsDispatched counts sweep dispatch results. Outcome is one of
	// ok|failed|dropped.
	jobsDispatched = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_dispatched_total",
			Help: "Total jobs handed to the dispatch table, by outcome.",
		},
		[]string{"type", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(jobsScheduled, jobsDispatched)
}
