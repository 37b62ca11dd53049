package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source resolves raw setting values by key. Implementations must be safe for
// concurrent use; the scheduler reads settings from many goroutines.
type Source interface {
	Lookup(key string) (string, bool)
}

// EnvSource reads settings from the process environment.
type EnvSource struct{}

// Lookup implements Source.
func (EnvSource) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapSource is a fixed in-memory Source. It must not be mutated while in use.
type MapSource map[string]string

// Lookup implements Source.
func (m MapSource) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// LayeredSource consults each Source in order; the first hit wins.
type LayeredSource []Source

// Lookup implements Source.
func (l LayeredSource) Lookup(key string) (string, bool) {
	for _, src := range l {
		if src == nil {
			continue
		}
		if v, ok := src.Lookup(key); ok {
			return v, true
		}
	}
	return "", false
}

// FileSource serves settings from a flat YAML mapping of key to scalar or list.
// Lists are re-encoded as JSON arrays so they resolve the same way as an
// environment value would.
//
//	PROOFSCHED_DEVICE_LIST: [0, 1]
//	PROOFSCHED_DEVICE_MEMORY: 24000
//	PROOFSCHED_GPU_BELL: false
type FileSource struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

// NewFileSource loads the YAML file at path.
func NewFileSource(path string) (*FileSource, error) {
	fs := &FileSource{path: path}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Reload re-reads the file. On error the previous values stay in effect.
func (f *FileSource) Reload() error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return fmt.Errorf("reading settings file: %w", err)
	}

	values, err := parseSettingsYAML(data)
	if err != nil {
		return fmt.Errorf("parsing settings file: %w", err)
	}

	f.mu.Lock()
	f.values = values
	f.mu.Unlock()
	return nil
}

// Lookup implements Source.
func (f *FileSource) Lookup(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

func parseSettingsYAML(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	values := make(map[string]string, len(raw))
	for key, v := range raw {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			values[key] = val
		case bool:
			values[key] = strconv.FormatBool(val)
		case int:
			values[key] = strconv.Itoa(val)
		case []any:
			encoded, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			values[key] = string(encoded)
		default:
			values[key] = fmt.Sprint(val)
		}
	}
	return values, nil
}
