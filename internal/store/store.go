package store

import (
	"context"
	"errors"

	"github.com/seantiz/proofsched/internal/model"
)

// ErrInvalidTransition is returned when an execution status transition is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// ExecutionStats holds aggregate journal statistics.
type ExecutionStats struct {
	Total         int            `json:"total"`
	CountByStatus map[string]int `json:"count_by_status"`
	CountByPath   map[string]int `json:"count_by_path"`
	CountByClass  map[string]int `json:"count_by_class"`
	Offloaded     int            `json:"offloaded"`
	AvgDurationMS float64        `json:"avg_duration_ms"`
}

// Store is the execution journal. It records what the scheduler did; it is
// never read back to rebuild device or counter state.
type Store interface {
	CreateExecution(ctx context.Context, e *model.Execution) error
	GetExecution(ctx context.Context, id string) (*model.Execution, error)
	ListExecutions(ctx context.Context, limit, offset int) ([]*model.Execution, int, error)
	FinishExecution(ctx context.Context, e *model.Execution) error
	GetExecutionStats(ctx context.Context) (*ExecutionStats, error)
	Close() error
}
