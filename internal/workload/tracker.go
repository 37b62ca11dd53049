package workload

import "log/slog"

// Thresholds supplies the live limits the busy checks compare against.
type Thresholds interface {
	CPUBusyMin() int64
	HashFirst() int64
}

// Tracker pairs Counters with their configured thresholds.
type Tracker struct {
	counters *Counters
	limits   Thresholds
	logger   *slog.Logger
}

// NewTracker creates a tracker over counters.
func NewTracker(counters *Counters, limits Thresholds, logger *slog.Logger) *Tracker {
	return &Tracker{
		counters: counters,
		limits:   limits,
		logger:   logger,
	}
}

// Counters returns the underlying counters.
func (t *Tracker) Counters() *Counters {
	return t.counters
}

// Start records a running task of class.
func (t *Tracker) Start(class Class) {
	n := t.counters.Start(class)
	t.logger.Debug("task started", "class", class.String(), "running", n)
}

// Finish records a finished task of class.
func (t *Tracker) Finish(class Class) {
	n := t.counters.Finish(class)
	t.logger.Debug("task finished", "class", class.String(), "running", n)
}

// CPUBusy reports whether the CPU-class count has reached the configured
// minimum.
func (t *Tracker) CPUBusy() bool {
	running := t.counters.Running(ClassCPU)
	t.logger.Debug("running cpu tasks", "running", running)
	return running >= t.limits.CPUBusyMin()
}

// HashBusy reports whether the Hash-class count has reached the hash-first
// threshold. A zero threshold disables the check.
func (t *Tracker) HashBusy() bool {
	threshold := t.limits.HashFirst()
	if threshold == 0 {
		t.logger.Debug("hash-first disabled")
		return false
	}
	running := t.counters.Running(ClassHash)
	t.logger.Debug("running hash tasks", "running", running, "hash_first", threshold)
	return running >= threshold
}

// PendingBell returns the raw Bell-class count.
func (t *Tracker) PendingBell() int64 {
	return t.counters.Running(ClassBell)
}
