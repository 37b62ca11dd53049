package backend

import "context"

// Runner executes tasks for one execution path.
type Runner interface {
	// Run executes the task and returns its result. The context carries
	// cancellation; a runner must stop promptly when it is done.
	Run(ctx context.Context, spec TaskSpec) (TaskResult, error)

	// Capabilities describes the runner.
	Capabilities() RunnerCapabilities
}

// TaskSpec describes a task that has already been routed. Slot and DeviceID
// are meaningful only when Path is the GPU path.
type TaskSpec struct {
	ID       string `json:"id"`
	Class    string `json:"class"`
	Path     string `json:"path"`
	Slot     int    `json:"slot"`
	DeviceID int    `json:"device_id"`
	MemoryMB int64  `json:"memory_mb"`
}

// TaskResult holds what a runner produced.
type TaskResult struct {
	ExitCode   int    `json:"exit_code"`
	Output     []byte `json:"output"`
	Error      string `json:"error"`
	DurationMS int    `json:"duration_ms"`
}

// RunnerCapabilities describes a runner.
type RunnerCapabilities struct {
	Name           string `json:"name"`
	Path           string `json:"path"`
	MaxConcurrency int    `json:"max_concurrency"`
}
