package config

import (
	"encoding/json"
	"slices"
	"strconv"
	"time"
)

// Setting keys understood by Settings.
const (
	KeyProvingThreads    = "PROOFSCHED_PROVING_THREADS"
	KeyGPUHash           = "PROOFSCHED_GPU_HASH"
	KeyGPUBell           = "PROOFSCHED_GPU_BELL"
	KeyDeviceList        = "PROOFSCHED_DEVICE_LIST"
	KeyDeviceMemory      = "PROOFSCHED_DEVICE_MEMORY"
	KeyHashFirst         = "PROOFSCHED_HASH_FIRST"
	KeyCPUOffload        = "PROOFSCHED_CPU_OFFLOAD"
	KeyNoCustom          = "PROOFSCHED_NO_CUSTOM"
	KeyCPUBusyMin        = "PROOFSCHED_CPU_BUSY_MIN"
	KeyMaxBellGPUThreads = "PROOFSCHED_MAX_BELL_GPU_THREADS"
	KeyVerifyThreads     = "PROOFSCHED_VERIFY_THREADS"
	KeySynthSleep        = "PROOFSCHED_SYNTH_RAND_SLEEP_MS"
)

// Defaults applied when a key is absent or unparsable.
const (
	DefaultProvingThreads = 5
	DefaultDeviceMemoryMB = 10500
	DefaultHashFirst      = 1
	DefaultCPUOffload     = 0
	DefaultCPUBusyMin     = 10
	DefaultVerifyThreads  = 4
	DefaultSynthSleepMS   = 60000
)

// Polling intervals for callers that wait on a device or on fact sealing.
// The scheduler itself never waits.
const (
	WaitGPU      = 1000 * time.Millisecond
	WaitFactSeal = 10 * time.Millisecond
)

// DefaultDeviceList is the device list used when none is configured.
func DefaultDeviceList() []int {
	return []int{0, 1, 2, 3}
}

// Int resolves key as a non-negative base-10 integer, falling back to def.
func Int(src Source, key string, def int64) int64 {
	v, ok := src.Lookup(key)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}

// Bool resolves key as exactly "true" or "false", falling back to def.
func Bool(src Source, key string, def bool) bool {
	v, ok := src.Lookup(key)
	if !ok {
		return def
	}
	switch v {
	case "true":
		return true
	case "false":
		return false
	default:
		return def
	}
}

// IntList resolves key as a JSON array of non-negative integers, falling back
// to def.
func IntList(src Source, key string, def []int) []int {
	v, ok := src.Lookup(key)
	if !ok {
		return def
	}
	var list []int
	if err := json.Unmarshal([]byte(v), &list); err != nil || list == nil {
		return def
	}
	if slices.ContainsFunc(list, func(n int) bool { return n < 0 }) {
		return def
	}
	return list
}

// Settings exposes the scheduler's tuning values. Nothing is cached: every
// accessor re-resolves its key, so a changing Source changes behaviour at
// runtime. Components that capture a value once (the device registry's length)
// will diverge from later reads.
type Settings struct {
	src Source
}

// NewSettings wraps src. A nil src resolves every key to its default.
func NewSettings(src Source) *Settings {
	if src == nil {
		src = MapSource(nil)
	}
	return &Settings{src: src}
}

// ProvingThreads is the number of proving threads.
func (s *Settings) ProvingThreads() int64 {
	return Int(s.src, KeyProvingThreads, DefaultProvingThreads)
}

// NoCustom disables the custom GPU hash and bell paths.
func (s *Settings) NoCustom() bool {
	return Bool(s.src, KeyNoCustom, false)
}

// GPUHash reports whether hashing may run on a device.
func (s *Settings) GPUHash() bool {
	if s.NoCustom() {
		return false
	}
	return Bool(s.src, KeyGPUHash, true)
}

// GPUBell reports whether bell proving may run on a device.
func (s *Settings) GPUBell() bool {
	if s.NoCustom() {
		return false
	}
	return Bool(s.src, KeyGPUBell, true)
}

// ParallelBell is fixed off.
func (s *Settings) ParallelBell() bool {
	return false
}

// DeviceList is the ordered list of logical device identifiers.
func (s *Settings) DeviceList() []int {
	return IntList(s.src, KeyDeviceList, DefaultDeviceList())
}

// DeviceMemory is the per-device memory capacity in MB, shared by all devices.
func (s *Settings) DeviceMemory() int64 {
	return Int(s.src, KeyDeviceMemory, DefaultDeviceMemoryMB)
}

// HashFirst is the hash-busy threshold. Zero disables the check.
func (s *Settings) HashFirst() int64 {
	return Int(s.src, KeyHashFirst, DefaultHashFirst)
}

// CPUOffload is the hash+bell count at which CPU-eligible work is offloaded.
// Zero disables offloading.
func (s *Settings) CPUOffload() int64 {
	return Int(s.src, KeyCPUOffload, DefaultCPUOffload)
}

// CPUBusyMin is the CPU-class running count at which the CPU path is busy.
func (s *Settings) CPUBusyMin() int64 {
	return Int(s.src, KeyCPUBusyMin, DefaultCPUBusyMin)
}

// MaxBellGPUThreads defaults to a third of the proving threads.
func (s *Settings) MaxBellGPUThreads() int64 {
	return Int(s.src, KeyMaxBellGPUThreads, s.ProvingThreads()/3)
}

// VerifyThreads is the number of verification threads.
func (s *Settings) VerifyThreads() int64 {
	return Int(s.src, KeyVerifyThreads, DefaultVerifyThreads)
}

// SynthesizeSleep is the upper bound of the random sleep before synthesis.
func (s *Settings) SynthesizeSleep() time.Duration {
	return time.Duration(Int(s.src, KeySynthSleep, DefaultSynthSleepMS)) * time.Millisecond
}

// Snapshot is a point-in-time view of every setting, for reporting only.
type Snapshot struct {
	ProvingThreads    int64 `json:"proving_threads"`
	NoCustom          bool  `json:"no_custom"`
	GPUHash           bool  `json:"gpu_hash"`
	GPUBell           bool  `json:"gpu_bell"`
	ParallelBell      bool  `json:"parallel_bell"`
	DeviceList        []int `json:"device_list"`
	DeviceMemoryMB    int64 `json:"device_memory_mb"`
	HashFirst         int64 `json:"hash_first"`
	CPUOffload        int64 `json:"cpu_offload"`
	CPUBusyMin        int64 `json:"cpu_busy_min"`
	MaxBellGPUThreads int64 `json:"max_bell_gpu_threads"`
	VerifyThreads     int64 `json:"verify_threads"`
	SynthSleepMS      int64 `json:"synth_sleep_ms"`
}

// Snapshot resolves every setting once. Values are read independently, so the
// result is not atomic with respect to a changing Source.
func (s *Settings) Snapshot() Snapshot {
	return Snapshot{
		ProvingThreads:    s.ProvingThreads(),
		NoCustom:          s.NoCustom(),
		GPUHash:           s.GPUHash(),
		GPUBell:           s.GPUBell(),
		ParallelBell:      s.ParallelBell(),
		DeviceList:        s.DeviceList(),
		DeviceMemoryMB:    s.DeviceMemory(),
		HashFirst:         s.HashFirst(),
		CPUOffload:        s.CPUOffload(),
		CPUBusyMin:        s.CPUBusyMin(),
		MaxBellGPUThreads: s.MaxBellGPUThreads(),
		VerifyThreads:     s.VerifyThreads(),
		SynthSleepMS:      s.SynthesizeSleep().Milliseconds(),
	}
}
