// testserver starts a proofsched API server with stub runners and an in-memory
// journal for E2E testing. Scheduling settings are read from the environment.
// Usage: go run ./cmd/testserver
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/seantiz/proofsched/internal/admission"
	"github.com/seantiz/proofsched/internal/api"
	"github.com/seantiz/proofsched/internal/backend"
	"github.com/seantiz/proofsched/internal/config"
	"github.com/seantiz/proofsched/internal/device"
	"github.com/seantiz/proofsched/internal/engine"
	"github.com/seantiz/proofsched/internal/model"
	"github.com/seantiz/proofsched/internal/store"
	"github.com/seantiz/proofsched/internal/workload"
)

// stubRunner sleeps for delay and then succeeds.
type stubRunner struct {
	name  string
	path  string
	delay time.Duration
}

func (s *stubRunner) Run(ctx context.Context, spec backend.TaskSpec) (backend.TaskResult, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return backend.TaskResult{}, ctx.Err()
	}
	return backend.TaskResult{
		Output:     []byte(s.name + " ran " + spec.ID),
		DurationMS: int(s.delay.Milliseconds()),
	}, nil
}

func (s *stubRunner) Capabilities() backend.RunnerCapabilities {
	return backend.RunnerCapabilities{Name: s.name, Path: s.path, MaxConcurrency: 10}
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	settings := config.NewSettings(config.EnvSource{})
	devices, err := device.NewRegistry(settings.DeviceList(), device.DefaultBaselineMB)
	if err != nil {
		log.Fatalf("failed to create device registry: %v", err)
	}
	selector := device.NewSelector(devices, settings, logger)
	tracker := workload.NewTracker(workload.NewCounters(), settings, logger)
	heuristic := admission.NewHeuristic(tracker, settings, logger)

	runners := backend.NewRegistry()
	runners.Register(model.PathCPU, &stubRunner{name: "stub-cpu", path: model.PathCPU, delay: 500 * time.Millisecond})
	runners.Register(model.PathGPU, &stubRunner{name: "stub-gpu", path: model.PathGPU, delay: 200 * time.Millisecond})

	eng := engine.NewEngine(db, runners, engine.Core{
		Selector:  selector,
		Tracker:   tracker,
		Heuristic: heuristic,
		Policy:    settings,
	}, logger)

	srv := api.NewServer(cfg.ListenAddr, api.Deps{
		Store:     db,
		Runners:   runners,
		Engine:    eng,
		Selector:  selector,
		Tracker:   tracker,
		Heuristic: heuristic,
		Settings:  settings,
	}, logger)

	logger.Info("testserver: starting", "addr", cfg.ListenAddr)
	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
