// Package workload counts running tasks per workload class and answers the
// busy checks the admission heuristic and dispatchers rely on.
package workload

import (
	"fmt"
	"sync/atomic"
)

// Class identifies a workload class.
type Class int

// Workload classes.
const (
	ClassCPU Class = iota
	ClassHash
	ClassBell

	numClasses
)

var classNames = [numClasses]string{
	ClassCPU:  "cpu",
	ClassHash: "hash",
	ClassBell: "bell",
}

// Classes lists every class in declaration order.
func Classes() []Class {
	return []Class{ClassCPU, ClassHash, ClassBell}
}

func (c Class) String() string {
	if c < 0 || c >= numClasses {
		return fmt.Sprintf("class(%d)", int(c))
	}
	return classNames[c]
}

// Valid reports whether c is a known class.
func (c Class) Valid() bool {
	return c >= 0 && c < numClasses
}

// ParseClass converts a class name back to a Class.
func ParseClass(s string) (Class, error) {
	for i, name := range classNames {
		if name == s {
			return Class(i), nil
		}
	}
	return 0, fmt.Errorf("unknown workload class %q", s)
}

// Counters holds one running-task counter per class. Start and Finish must be
// paired by the caller; an unmatched Finish leaves the counter negative.
type Counters struct {
	running [numClasses]atomic.Int64
}

// NewCounters returns zeroed counters.
func NewCounters() *Counters {
	return &Counters{}
}

// Start records one more running task of class.
func (c *Counters) Start(class Class) int64 {
	return c.running[class].Add(1)
}

// Finish records one fewer running task of class.
func (c *Counters) Finish(class Class) int64 {
	return c.running[class].Add(-1)
}

// Running returns the current count for class.
func (c *Counters) Running(class Class) int64 {
	return c.running[class].Load()
}

// StartCPU is Start(ClassCPU).
func (c *Counters) StartCPU() { c.Start(ClassCPU) }

// FinishCPU is Finish(ClassCPU).
func (c *Counters) FinishCPU() { c.Finish(ClassCPU) }

// StartHash is Start(ClassHash).
func (c *Counters) StartHash() { c.Start(ClassHash) }

// FinishHash is Finish(ClassHash).
func (c *Counters) FinishHash() { c.Finish(ClassHash) }

// StartBell is Start(ClassBell).
func (c *Counters) StartBell() { c.Start(ClassBell) }

// FinishBell is Finish(ClassBell).
func (c *Counters) FinishBell() { c.Finish(ClassBell) }
