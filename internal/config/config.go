package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "proofsched.db"

	envListenAddr   = "PROOFSCHED_LISTEN_ADDR"
	envDBPath       = "PROOFSCHED_DB_PATH"
	envLogLevel     = "PROOFSCHED_LOG_LEVEL"
	envSettingsFile = "PROOFSCHED_SETTINGS_FILE"
	envCPUCommand   = "PROOFSCHED_CPU_COMMAND"
	envGPUCommand   = "PROOFSCHED_GPU_COMMAND"
	envStrict       = "PROOFSCHED_STRICT_RESERVATION"
)

// Config holds process-level configuration loaded from environment variables.
// Scheduling settings are not part of it: they are resolved live through a
// Source on every read (see Settings).
type Config struct {
	ListenAddr   string
	DBPath       string
	LogLevel     slog.Level
	SettingsFile string
	CPUCommand   string
	GPUCommand   string

	// StrictReservation makes device reservations check and add atomically.
	StrictReservation bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
	cfg.SettingsFile = os.Getenv(envSettingsFile)
	cfg.CPUCommand = os.Getenv(envCPUCommand)
	cfg.GPUCommand = os.Getenv(envGPUCommand)
	cfg.StrictReservation = os.Getenv(envStrict) == "true"

	return cfg
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
