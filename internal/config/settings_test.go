package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaults(t *testing.T) {
	s := NewSettings(nil)

	assert.Equal(t, []int{0, 1, 2, 3}, s.DeviceList())
	assert.EqualValues(t, 10500, s.DeviceMemory())
	assert.EqualValues(t, 5, s.ProvingThreads())
	assert.EqualValues(t, 0, s.CPUOffload())
	assert.EqualValues(t, 1, s.HashFirst())
	assert.EqualValues(t, 10, s.CPUBusyMin())
	assert.EqualValues(t, 1, s.MaxBellGPUThreads())
	assert.EqualValues(t, 4, s.VerifyThreads())
	assert.Equal(t, 60*time.Second, s.SynthesizeSleep())
	assert.False(t, s.NoCustom())
	assert.True(t, s.GPUHash())
	assert.True(t, s.GPUBell())
	assert.False(t, s.ParallelBell())
}

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		set   bool
		want  int64
	}{
		{"absent", "", false, 7},
		{"valid", "42", true, 42},
		{"zero", "0", true, 0},
		{"negative", "-3", true, 7},
		{"garbage", "ten", true, 7},
		{"padded", " 5", true, 7},
		{"empty", "", true, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := MapSource{}
			if tt.set {
				src["K"] = tt.value
			}
			assert.Equal(t, tt.want, Int(src, "K", 7))
		})
	}
}

func TestBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"true", false, true},
		{"false", true, false},
		{"TRUE", false, false},
		{"1", true, true},
		{"yes", false, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Bool(MapSource{"K": tt.value}, "K", tt.def), "value %q", tt.value)
	}
	assert.True(t, Bool(MapSource{}, "K", true))
}

func TestIntList(t *testing.T) {
	def := []int{9}

	assert.Equal(t, []int{1, 3}, IntList(MapSource{"K": "[1,3]"}, "K", def))
	assert.Equal(t, []int{}, IntList(MapSource{"K": "[]"}, "K", def))
	assert.Equal(t, def, IntList(MapSource{"K": "1,3"}, "K", def))
	assert.Equal(t, def, IntList(MapSource{"K": "null"}, "K", def))
	assert.Equal(t, def, IntList(MapSource{"K": "[1,-1]"}, "K", def))
	assert.Equal(t, def, IntList(MapSource{"K": `["a"]`}, "K", def))
	assert.Equal(t, def, IntList(MapSource{}, "K", def))
}

func TestSettingsNoCustomDisablesGPUPaths(t *testing.T) {
	s := NewSettings(MapSource{
		KeyNoCustom: "true",
		KeyGPUHash:  "true",
		KeyGPUBell:  "true",
	})

	assert.False(t, s.GPUHash())
	assert.False(t, s.GPUBell())
}

func TestSettingsMaxBellGPUThreadsDerived(t *testing.T) {
	s := NewSettings(MapSource{KeyProvingThreads: "9"})
	assert.EqualValues(t, 3, s.MaxBellGPUThreads())

	s = NewSettings(MapSource{KeyProvingThreads: "9", KeyMaxBellGPUThreads: "2"})
	assert.EqualValues(t, 2, s.MaxBellGPUThreads())
}

func TestSettingsReadsLive(t *testing.T) {
	t.Setenv(KeyDeviceMemory, "100")
	s := NewSettings(EnvSource{})
	assert.EqualValues(t, 100, s.DeviceMemory())

	t.Setenv(KeyDeviceMemory, "200")
	assert.EqualValues(t, 200, s.DeviceMemory())
}

func TestLayeredSourceFirstHitWins(t *testing.T) {
	src := LayeredSource{
		MapSource{KeyCPUOffload: "5"},
		nil,
		MapSource{KeyCPUOffload: "9", KeyCPUBusyMin: "3"},
	}
	s := NewSettings(src)

	assert.EqualValues(t, 5, s.CPUOffload())
	assert.EqualValues(t, 3, s.CPUBusyMin())
	assert.EqualValues(t, DefaultHashFirst, s.HashFirst())
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, `
PROOFSCHED_DEVICE_LIST: [2, 5]
PROOFSCHED_DEVICE_MEMORY: 24000
PROOFSCHED_GPU_BELL: false
PROOFSCHED_CPU_OFFLOAD: "4"
`)

	fs, err := NewFileSource(path)
	require.NoError(t, err)

	s := NewSettings(fs)
	assert.Equal(t, []int{2, 5}, s.DeviceList())
	assert.EqualValues(t, 24000, s.DeviceMemory())
	assert.False(t, s.GPUBell())
	assert.EqualValues(t, 4, s.CPUOffload())

	writeFile(t, path, "PROOFSCHED_DEVICE_MEMORY: 8000\n")
	require.NoError(t, fs.Reload())
	assert.EqualValues(t, 8000, s.DeviceMemory())
	assert.Equal(t, DefaultDeviceList(), s.DeviceList())
}

func TestFileSourceReloadKeepsValuesOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	writeFile(t, path, "PROOFSCHED_HASH_FIRST: 3\n")

	fs, err := NewFileSource(path)
	require.NoError(t, err)

	writeFile(t, path, "PROOFSCHED_HASH_FIRST: [unterminated\n")
	assert.Error(t, fs.Reload())

	v, ok := fs.Lookup(KeyHashFirst)
	assert.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestNewFileSourceMissing(t *testing.T) {
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}
