package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrRunnerNotRegistered is returned by Resolve when no runner serves a path.
var ErrRunnerNotRegistered = errors.New("runner not registered")

// RunnerInfo pairs a path with its runner's capabilities.
type RunnerInfo struct {
	Path         string             `json:"path"`
	Capabilities RunnerCapabilities `json:"capabilities"`
}

// Registry holds one runner per execution path.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]Runner
}

// NewRegistry creates an empty runner registry.
func NewRegistry() *Registry {
	return &Registry{
		runners: make(map[string]Runner),
	}
}

// Register installs r for path, replacing any earlier runner.
func (r *Registry) Register(path string, runner Runner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[path] = runner
}

// Resolve returns the runner for path.
func (r *Registry) Resolve(path string) (Runner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runner, ok := r.runners[path]
	if !ok {
		return nil, fmt.Errorf("path %q: %w", path, ErrRunnerNotRegistered)
	}
	return runner, nil
}

// List returns every registered runner, sorted by path for a stable API
// response.
func (r *Registry) List() []RunnerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RunnerInfo, 0, len(r.runners))
	for path, runner := range r.runners {
		infos = append(infos, RunnerInfo{
			Path:         path,
			Capabilities: runner.Capabilities(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})
	return infos
}
