package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

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

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("proofsched: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"settings_file", cfg.SettingsFile,
	)

	// Environment overrides the settings file.
	sources := config.LayeredSource{config.EnvSource{}}
	if cfg.SettingsFile != "" {
		fs, err := config.NewFileSource(cfg.SettingsFile)
		if err != nil {
			log.Fatalf("failed to load settings: %v", err)
		}
		sources = append(sources, fs)

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		go func() {
			for range hup {
				if err := fs.Reload(); err != nil {
					logger.Error("reload settings", "error", err)
					continue
				}
				logger.Info("settings reloaded", "path", cfg.SettingsFile)
			}
		}()
	}
	settings := config.NewSettings(sources)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	devices, err := device.NewRegistry(settings.DeviceList(), device.DefaultBaselineMB)
	if err != nil {
		log.Fatalf("failed to create device registry: %v", err)
	}

	var selectorOpts []device.Option
	if cfg.StrictReservation {
		selectorOpts = append(selectorOpts, device.WithStrictReservation())
	}
	selector := device.NewSelector(devices, settings, logger, selectorOpts...)
	counters := workload.NewCounters()
	tracker := workload.NewTracker(counters, settings, logger)
	heuristic := admission.NewHeuristic(tracker, settings, logger)

	runners := backend.NewRegistry()
	if cfg.CPUCommand != "" {
		runners.Register(model.PathCPU, backend.NewCommandRunner(model.PathCPU, cfg.CPUCommand, int(settings.ProvingThreads()), logger))
	}
	if cfg.GPUCommand != "" {
		runners.Register(model.PathGPU, backend.NewCommandRunner(model.PathGPU, cfg.GPUCommand, devices.Len(), logger))
	}
	for _, info := range runners.List() {
		logger.Info("runner registered", "path", info.Path, "name", info.Capabilities.Name)
	}

	prometheus.MustRegister(engine.NewStateCollector(devices, counters))

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

	if err := srv.Run(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
