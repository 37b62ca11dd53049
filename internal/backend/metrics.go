package backend

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for command status.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusKilled    = "killed"
)

var (
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "proofsched_runner_command_seconds",
			Help:    "Wall time of runner commands, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "proofsched_runner_commands_total",
			Help: "Total number of runner commands by path and outcome.",
		},
		[]string{"path", "status"},
	)
)

func init() {
	prometheus.MustRegister(commandDuration)
	prometheus.MustRegister(commandsTotal)
}
