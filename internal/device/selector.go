package device

import (
	"log/slog"
)

// CapacitySource supplies the per-device memory capacity. It is read on every
// call, never cached.
type CapacitySource interface {
	DeviceMemory() int64
}

// Reservation reports the outcome of Reserve. Slot and DeviceID are set even
// when OK is false so callers can see which device was contended.
type Reservation struct {
	OK       bool  `json:"ok"`
	Slot     int   `json:"slot"`
	DeviceID int   `json:"device_id"`
	MemoryMB int64 `json:"memory_mb"`
}

// Selector places work on the least-loaded device of a Registry.
//
// By default the capacity check and the add are separate atomic operations:
// two callers racing on the same slot can both pass the check, so capacity is
// a soft limit. WithStrictReservation closes that window.
type Selector struct {
	registry *Registry
	capacity CapacitySource
	strict   bool
	logger   *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithStrictReservation makes Reserve use a compare-and-swap loop so a
// successful reservation never takes a slot to or past capacity.
func WithStrictReservation() Option {
	return func(s *Selector) {
		s.strict = true
	}
}

// NewSelector creates a selector over reg.
func NewSelector(reg *Registry, capacity CapacitySource, logger *slog.Logger, opts ...Option) *Selector {
	s := &Selector{
		registry: reg,
		capacity: capacity,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the underlying registry.
func (s *Selector) Registry() *Registry {
	return s.registry
}

// Reserve picks the slot with the least consumed memory (lowest index on ties)
// and adds requested to it if consumed+requested stays below capacity.
func (s *Selector) Reserve(requested int64) Reservation {
	consumed := s.registry.ConsumedMemory()
	s.logger.Debug("device consumed memory", "consumed_mb", consumed)

	slot := leastLoaded(consumed)
	res := Reservation{
		Slot:     slot,
		DeviceID: s.registry.DeviceID(slot),
		MemoryMB: requested,
	}
	if requested < 0 {
		return res
	}

	limit := s.capacity.DeviceMemory() - requested

	var used int64
	if s.strict {
		used, res.OK = s.reserveCAS(slot, requested, limit)
	} else if s.registry.Consumed(slot) < limit {
		used, res.OK = s.registry.add(slot, requested), true
	}

	if res.OK {
		s.logger.Info("device reserved",
			"slot", slot,
			"device_id", res.DeviceID,
			"used_mb", used,
		)
	}
	return res
}

func (s *Selector) reserveCAS(slot int, requested, limit int64) (int64, bool) {
	for {
		cur := s.registry.Consumed(slot)
		if cur >= limit {
			return cur, false
		}
		if s.registry.compareAndSwap(slot, cur, cur+requested) {
			return cur + requested, true
		}
	}
}

// Release subtracts amount from slot. There is no lower bound: releasing more
// than was reserved drives the slot below its baseline or negative.
func (s *Selector) Release(slot int, amount int64) {
	s.registry.add(slot, -amount)
}

// Overloaded reports whether slot is at or above capacity.
func (s *Selector) Overloaded(slot int) bool {
	return s.registry.Consumed(slot) >= s.capacity.DeviceMemory()
}

// leastLoaded returns the index of the smallest value; the first one wins ties.
func leastLoaded(consumed []int64) int {
	best := 0
	for i := 1; i < len(consumed); i++ {
		if consumed[i] < consumed[best] {
			best = i
		}
	}
	return best
}
