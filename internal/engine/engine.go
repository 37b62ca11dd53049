package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/seantiz/proofsched/internal/admission"
	"github.com/seantiz/proofsched/internal/backend"
	"github.com/seantiz/proofsched/internal/device"
	"github.com/seantiz/proofsched/internal/model"
	"github.com/seantiz/proofsched/internal/store"
	"github.com/seantiz/proofsched/internal/workload"
)

// ErrNoCapacity is returned when a GPU-only task finds no device with room.
var ErrNoCapacity = errors.New("no device capacity")

// ErrInvalidTask is returned for tasks with an unknown class or negative memory.
var ErrInvalidTask = errors.New("invalid task")

// Task is one unit of work offered to the scheduler.
type Task struct {
	ID          string
	Class       workload.Class
	MemoryMB    int64
	CPUEligible bool
}

// Policy reports which classes may use the GPU path at all.
type Policy interface {
	GPUHash() bool
	GPUBell() bool
}

// Core groups the scheduling components the engine drives.
type Core struct {
	Selector  *device.Selector
	Tracker   *workload.Tracker
	Heuristic *admission.Heuristic
	Policy    Policy
}

// Engine orchestrates task execution.
type Engine struct {
	store    store.Store
	registry *backend.Registry
	core     Core
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewEngine creates a new execution engine.
func NewEngine(s store.Store, reg *backend.Registry, core Core, logger *slog.Logger) *Engine {
	return &Engine{
		store:    s,
		registry: reg,
		core:     core,
		logger:   logger,
	}
}

// dispatch is an admitted task: its class counter is held, and on the GPU path
// its reservation is held, until finish runs.
type dispatch struct {
	exec        *model.Execution
	class       workload.Class
	reservation device.Reservation
	holdsCPU    bool
	start       time.Time
}

// Execute admits the task and runs it to completion. A runner failure is
// reported through the returned execution's status, not as an error.
func (e *Engine) Execute(ctx context.Context, t Task) (*model.Execution, error) {
	d, err := e.admit(ctx, t)
	if err != nil {
		return d.record(), err
	}
	return e.run(ctx, d), nil
}

// Submit admits the task and runs it in a goroutine. Routing and reservation
// happen before Submit returns, so ErrNoCapacity is reported synchronously.
// The returned execution is a copy taken at admission.
func (e *Engine) Submit(ctx context.Context, t Task) (*model.Execution, error) {
	d, err := e.admit(ctx, t)
	if err != nil {
		return d.record(), err
	}

	admitted := *d.exec
	runCtx := context.WithoutCancel(ctx)
	e.wg.Go(func() {
		e.run(runCtx, d)
	})
	return &admitted, nil
}

// Wait blocks until all submitted tasks complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// record returns the journaled execution, or nil when nothing was written.
func (d *dispatch) record() *model.Execution {
	if d == nil {
		return nil
	}
	return d.exec
}

// admit routes the task and records it as running. On ErrNoCapacity the
// returned dispatch carries the rejected record.
func (e *Engine) admit(ctx context.Context, t Task) (*dispatch, error) {
	if !t.Class.Valid() {
		return nil, fmt.Errorf("%w: unknown class %s", ErrInvalidTask, t.Class)
	}
	if t.MemoryMB < 0 {
		return nil, fmt.Errorf("%w: negative memory %d", ErrInvalidTask, t.MemoryMB)
	}
	if t.ID == "" {
		t.ID = model.NewID()
	}

	e.core.Tracker.Start(t.Class)

	d := &dispatch{
		class: t.Class,
		start: time.Now(),
		exec: &model.Execution{
			ID:          t.ID,
			Class:       t.Class.String(),
			Status:      model.StatusRunning,
			CPUEligible: t.CPUEligible,
			MemoryMB:    t.MemoryMB,
			CreatedAt:   time.Now().UTC(),
		},
	}

	path, reason := e.route(t)
	if path == model.PathGPU {
		res := e.core.Selector.Reserve(t.MemoryMB)
		switch {
		case res.OK:
			reservationsTotal.WithLabelValues(outcomeReserved).Inc()
			d.reservation = res
			slot, id := res.Slot, res.DeviceID
			d.exec.Slot, d.exec.DeviceID = &slot, &id
		case t.CPUEligible:
			reservationsTotal.WithLabelValues(outcomeExhausted).Inc()
			path, reason = model.PathCPU, reasonFallback
		default:
			reservationsTotal.WithLabelValues(outcomeExhausted).Inc()
			routeDecisions.WithLabelValues(d.exec.Class, pathNone, reasonNoCapacity).Inc()
			return e.reject(ctx, d)
		}
	}
	routeDecisions.WithLabelValues(d.exec.Class, path, reason).Inc()

	d.exec.Path = path
	d.exec.Offloaded = path == model.PathCPU && (reason == reasonOffload || reason == reasonFallback)
	if path == model.PathCPU && t.Class != workload.ClassCPU {
		e.core.Tracker.Start(workload.ClassCPU)
		d.holdsCPU = true
	}

	if err := e.store.CreateExecution(ctx, d.exec); err != nil {
		e.release(d)
		return nil, fmt.Errorf("create execution: %w", err)
	}

	e.logger.Info("task admitted",
		"execution_id", d.exec.ID,
		"class", d.exec.Class,
		"path", path,
		"reason", reason,
	)
	return d, nil
}

// route picks the execution path before any reservation is attempted.
func (e *Engine) route(t Task) (string, string) {
	switch {
	case t.Class == workload.ClassCPU:
		return model.PathCPU, reasonClass
	case t.Class == workload.ClassHash && !e.core.Policy.GPUHash():
		return model.PathCPU, reasonGPUDisabled
	case t.Class == workload.ClassBell && !e.core.Policy.GPUBell():
		return model.PathCPU, reasonGPUDisabled
	case t.CPUEligible && e.core.Heuristic.ShouldRouteToCPU():
		return model.PathCPU, reasonOffload
	default:
		return model.PathGPU, reasonReserved
	}
}

// reject journals a GPU-only task that found no room on its selected path.
func (e *Engine) reject(ctx context.Context, d *dispatch) (*dispatch, error) {
	e.core.Tracker.Finish(d.class)

	now := time.Now().UTC()
	d.exec.Path = model.PathGPU
	d.exec.Status = model.StatusRejected
	d.exec.Error = ErrNoCapacity.Error()
	d.exec.FinishedAt = &now
	executionsTotal.WithLabelValues(d.exec.Class, model.StatusRejected).Inc()

	if err := e.store.CreateExecution(ctx, d.exec); err != nil {
		e.logger.Error("failed to record rejected execution", "execution_id", d.exec.ID, "error", err)
		return nil, ErrNoCapacity
	}
	e.logger.Warn("task rejected", "execution_id", d.exec.ID, "class", d.exec.Class, "memory_mb", d.exec.MemoryMB)
	return d, ErrNoCapacity
}

// run executes an admitted task and always releases what admit took.
func (e *Engine) run(ctx context.Context, d *dispatch) *model.Execution {
	defer e.release(d)

	spec := backend.TaskSpec{
		ID:       d.exec.ID,
		Class:    d.exec.Class,
		Path:     d.exec.Path,
		MemoryMB: d.exec.MemoryMB,
	}
	if d.reservation.OK {
		spec.Slot = d.reservation.Slot
		spec.DeviceID = d.reservation.DeviceID
	}

	var errMsg string
	runner, err := e.registry.Resolve(d.exec.Path)
	if err != nil {
		errMsg = fmt.Sprintf("resolve runner: %v", err)
	} else {
		result, err := runner.Run(ctx, spec)
		switch {
		case err != nil:
			errMsg = err.Error()
		case result.ExitCode != 0:
			errMsg = fmt.Sprintf("exit code %d", result.ExitCode)
			if result.Error != "" {
				errMsg += ": " + result.Error
			}
		}
	}

	now := time.Now().UTC()
	duration := time.Since(d.start)
	durationMS := int(duration.Milliseconds())
	executionDuration.WithLabelValues(d.exec.Path).Observe(duration.Seconds())

	finished := *d.exec
	finished.Status = model.StatusCompleted
	finished.Error = errMsg
	finished.DurationMS = &durationMS
	finished.FinishedAt = &now
	if errMsg != "" {
		finished.Status = model.StatusFailed
	}
	executionsTotal.WithLabelValues(finished.Class, finished.Status).Inc()

	if err := e.store.FinishExecution(context.WithoutCancel(ctx), &finished); err != nil {
		e.logger.Error("failed to finish execution", "execution_id", finished.ID, "error", err)
	}

	e.logger.Info("task finished",
		"execution_id", finished.ID,
		"path", finished.Path,
		"status", finished.Status,
		"duration_ms", durationMS,
	)
	return &finished
}

func (e *Engine) release(d *dispatch) {
	if d.reservation.OK {
		e.core.Selector.Release(d.reservation.Slot, d.reservation.MemoryMB)
	}
	if d.holdsCPU {
		e.core.Tracker.Finish(workload.ClassCPU)
	}
	e.core.Tracker.Finish(d.class)
}
