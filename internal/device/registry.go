package device

import (
	"errors"
	"sync/atomic"
)

// DefaultBaselineMB is the consumed memory every slot starts with, standing for
// memory assumed to be held on each device before any reservation.
const DefaultBaselineMB int64 = 181

// ErrNoDevices is returned when a registry is built from an empty device list.
var ErrNoDevices = errors.New("no devices configured")

// Registry holds one consumed-memory counter per device slot. Its length and
// the device identifiers are fixed at construction; later changes to the
// configured device list are not seen.
type Registry struct {
	slots []atomic.Int64
	ids   []int
}

// NewRegistry creates a registry with one slot per entry of deviceIDs, each
// starting at baseline.
func NewRegistry(deviceIDs []int, baseline int64) (*Registry, error) {
	if len(deviceIDs) == 0 {
		return nil, ErrNoDevices
	}

	r := &Registry{
		slots: make([]atomic.Int64, len(deviceIDs)),
		ids:   append([]int(nil), deviceIDs...),
	}
	for i := range r.slots {
		r.slots[i].Store(baseline)
	}
	return r, nil
}

// Len returns the number of slots.
func (r *Registry) Len() int {
	return len(r.slots)
}

// DeviceID returns the logical device identifier mapped to slot.
func (r *Registry) DeviceID(slot int) int {
	return r.ids[slot]
}

// DeviceIDs returns a copy of the slot-ordered device identifiers.
func (r *Registry) DeviceIDs() []int {
	return append([]int(nil), r.ids...)
}

// Consumed returns the current consumed memory of slot.
func (r *Registry) Consumed(slot int) int64 {
	return r.slots[slot].Load()
}

// ConsumedMemory reads every slot. Each slot is loaded independently, so the
// result is not an atomic snapshot of the whole registry.
func (r *Registry) ConsumedMemory() []int64 {
	out := make([]int64, len(r.slots))
	for i := range r.slots {
		out[i] = r.slots[i].Load()
	}
	return out
}

func (r *Registry) add(slot int, delta int64) int64 {
	return r.slots[slot].Add(delta)
}

func (r *Registry) compareAndSwap(slot int, old, updated int64) bool {
	return r.slots[slot].CompareAndSwap(old, updated)
}
