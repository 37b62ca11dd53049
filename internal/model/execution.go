package model

import "time"

// Execution status constants.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusRejected  = "rejected"
)

// Execution path constants.
const (
	PathCPU = "cpu"
	PathGPU = "gpu"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusRunning: {
		StatusCompleted: true,
		StatusFailed:    true,
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Terminal reports whether status is final.
func Terminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed || status == StatusRejected
}

// Execution is the journal record of one task dispatched through the scheduler.
// Slot and DeviceID are set only when the task held a device reservation.
type Execution struct {
	ID          string     `json:"id"`
	Class       string     `json:"class"`
	Path        string     `json:"path"`
	Status      string     `json:"status"`
	CPUEligible bool       `json:"cpu_eligible"`
	Offloaded   bool       `json:"offloaded"`
	MemoryMB    int64      `json:"memory_mb"`
	Slot        *int       `json:"slot,omitempty"`
	DeviceID    *int       `json:"device_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	DurationMS  *int       `json:"duration_ms,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}
