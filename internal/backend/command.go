package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/seantiz/proofsched/internal/model"
)

// Environment variables exported to every command.
const (
	EnvTaskID        = "PROOFSCHED_TASK_ID"
	EnvTaskClass     = "PROOFSCHED_TASK_CLASS"
	EnvTaskPath      = "PROOFSCHED_TASK_PATH"
	EnvTaskMemoryMB  = "PROOFSCHED_TASK_MEMORY_MB"
	EnvDeviceSlot    = "PROOFSCHED_DEVICE_SLOT"
	EnvVisibleDevice = "CUDA_VISIBLE_DEVICES"
)

// CommandRunner runs a shell command per task. A non-zero exit is reported in
// the result, not as an error; errors mean the command could not be run or was
// cancelled.
type CommandRunner struct {
	name        string
	path        string
	command     string
	concurrency int
	logger      *slog.Logger
}

// NewCommandRunner creates a runner that executes command with sh -c on path.
func NewCommandRunner(path, command string, concurrency int, logger *slog.Logger) *CommandRunner {
	return &CommandRunner{
		name:        path + "-command",
		path:        path,
		command:     command,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run executes the command with the task described in its environment.
func (r *CommandRunner) Run(ctx context.Context, spec TaskSpec) (TaskResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Env = append(os.Environ(), r.env(spec)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)
	commandDuration.WithLabelValues(r.path).Observe(duration.Seconds())

	result := TaskResult{
		Output:     stdout.Bytes(),
		DurationMS: int(duration.Milliseconds()),
	}

	if ctx.Err() != nil {
		commandsTotal.WithLabelValues(r.path, statusKilled).Inc()
		return TaskResult{}, fmt.Errorf("run %s command: %w", r.path, ctx.Err())
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		commandsTotal.WithLabelValues(r.path, statusFailed).Inc()
		result.ExitCode = exitErr.ExitCode()
		result.Error = strings.TrimSpace(stderr.String())
	case err != nil:
		commandsTotal.WithLabelValues(r.path, statusFailed).Inc()
		return TaskResult{}, fmt.Errorf("run %s command: %w", r.path, err)
	default:
		commandsTotal.WithLabelValues(r.path, statusCompleted).Inc()
	}

	r.logger.Info("command finished",
		"task_id", spec.ID,
		"path", r.path,
		"exit_code", result.ExitCode,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

func (r *CommandRunner) env(spec TaskSpec) []string {
	env := []string{
		EnvTaskID + "=" + spec.ID,
		EnvTaskClass + "=" + spec.Class,
		EnvTaskPath + "=" + spec.Path,
		EnvTaskMemoryMB + "=" + strconv.FormatInt(spec.MemoryMB, 10),
	}
	if spec.Path == model.PathGPU {
		env = append(env,
			EnvDeviceSlot+"="+strconv.Itoa(spec.Slot),
			EnvVisibleDevice+"="+strconv.Itoa(spec.DeviceID),
		)
	}
	return env
}

// Capabilities reports the runner's name, path and concurrency hint.
func (r *CommandRunner) Capabilities() RunnerCapabilities {
	return RunnerCapabilities{
		Name:           r.name,
		Path:           r.path,
		MaxConcurrency: r.concurrency,
	}
}
