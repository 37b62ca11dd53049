package engine

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/seantiz/proofsched/internal/model"
	"github.com/seantiz/proofsched/internal/workload"
)

// Reservation outcomes.
const (
	outcomeReserved  = "reserved"
	outcomeExhausted = "exhausted"
)

// Route reasons.
const (
	reasonClass       = "class"
	reasonGPUDisabled = "gpu_disabled"
	reasonOffload     = "offload"
	reasonFallback    = "fallback"
	reasonReserved    = "reserved"
	reasonNoCapacity  = "no_capacity"
)

// pathNone labels decisions that reached no path.
const pathNone = "none"

var (
	reservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofsched_reservations_total",
			Help: "Total number of device reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	routeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofsched_route_decisions_total",
			Help: "Total number of routing decisions by class, path and reason.",
		},
		[]string{"class", "path", "reason"},
	)

	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofsched_executions_total",
			Help: "Total number of executions by class and final status.",
		},
		[]string{"class", "status"},
	)

	executionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proofsched_execution_seconds",
			Help:    "Execution wall time from admission to finish, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(reservationsTotal)
	prometheus.MustRegister(routeDecisions)
	prometheus.MustRegister(executionsTotal)
	prometheus.MustRegister(executionDuration)

	// Pre-initialize label combinations so they appear in /metrics from startup.
	reservationsTotal.WithLabelValues(outcomeReserved)
	reservationsTotal.WithLabelValues(outcomeExhausted)
	for _, c := range workload.Classes() {
		for _, status := range []string{model.StatusCompleted, model.StatusFailed, model.StatusRejected} {
			executionsTotal.WithLabelValues(c.String(), status)
		}
	}
}
