// Package engine runs scheduled tasks end to end. It routes each task to the
// CPU or GPU path, reserves device memory for GPU work, hands the task to the
// path's runner, and journals the outcome. Every counter start and device
// reservation it takes is paired with a finish or release on all paths.
package engine
