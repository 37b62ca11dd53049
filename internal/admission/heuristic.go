// Package admission decides whether CPU-eligible work should leave the
// accelerator path for the CPU path. Decisions are advisory; nothing here
// blocks or mutates the workload counters.
package admission

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/seantiz/proofsched/internal/workload"
)

// DefaultMaxJitter bounds the random delay taken before each decision.
const DefaultMaxJitter = 100 * time.Millisecond

// Limits supplies the live CPU-offload threshold. Zero disables offloading.
type Limits interface {
	CPUOffload() int64
}

// Heuristic routes work to the CPU when enough hash and bell tasks are running
// and the CPU path is not already busy.
type Heuristic struct {
	tracker   *workload.Tracker
	limits    Limits
	maxJitter time.Duration
	sleep     func(time.Duration)
	logger    *slog.Logger
}

// Option configures a Heuristic.
type Option func(*Heuristic)

// WithMaxJitter sets the upper bound of the pre-decision delay. Zero or
// negative disables it.
func WithMaxJitter(d time.Duration) Option {
	return func(h *Heuristic) {
		h.maxJitter = d
	}
}

// WithSleep replaces time.Sleep for the jitter delay.
func WithSleep(sleep func(time.Duration)) Option {
	return func(h *Heuristic) {
		h.sleep = sleep
	}
}

// NewHeuristic creates a heuristic reading counters through tracker.
func NewHeuristic(tracker *workload.Tracker, limits Limits, logger *slog.Logger, opts ...Option) *Heuristic {
	h := &Heuristic{
		tracker:   tracker,
		limits:    limits,
		maxJitter: DefaultMaxJitter,
		sleep:     time.Sleep,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ShouldRouteToCPU sleeps for a uniformly random whole number of milliseconds
// below the jitter bound, then reports whether hash+bell has reached the
// CPU-offload threshold while the CPU class is not busy. The delay spreads out
// callers deciding at the same moment; it cannot be cancelled.
func (h *Heuristic) ShouldRouteToCPU() bool {
	h.jitter()

	threshold := h.limits.CPUOffload()
	if threshold == 0 {
		h.logger.Debug("cpu offload disabled")
		return false
	}

	counters := h.tracker.Counters()
	hash := counters.Running(workload.ClassHash)
	bell := counters.Running(workload.ClassBell)
	cpuBusy := h.tracker.CPUBusy()

	route := hash+bell >= threshold && !cpuBusy
	h.logger.Debug("cpu offload decision",
		"cpu_offload", threshold,
		"hash_running", hash,
		"bell_running", bell,
		"cpu_busy", cpuBusy,
		"route_to_cpu", route,
	)
	return route
}

func (h *Heuristic) jitter() {
	ms := h.maxJitter.Milliseconds()
	if ms <= 0 {
		return
	}
	d := time.Duration(rand.Int64N(ms)) * time.Millisecond
	h.logger.Debug("decision jitter", "sleep_ms", d.Milliseconds())
	h.sleep(d)
}
