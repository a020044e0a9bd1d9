// Package backend abstracts the profiler that produces collapsed
// stack reports for each session window.
//
// A backend moves through three states: it is created Uninitialized,
// Initialize moves it to Ready, and Start moves it to Running. Report
// may only be called while Running; it returns the samples gathered
// since the previous report and opens a fresh window. Stop returns
// the backend to Ready so it can be started again.
package backend

import (
	"fmt"
	"sync/atomic"
)

// SpyName identifies this collector family to the Pyroscope server.
const SpyName = "gospy"

// Sample value units reported alongside profiles.
const (
	UnitsSamples = "samples"
	UnitsBytes   = "bytes"
)

// State is a backend lifecycle state.
type State int32

const (
	// Uninitialized means Initialize has not been called yet.
	Uninitialized State = iota
	// Ready means the backend is configured but not collecting.
	Ready
	// Running means the backend is actively collecting samples.
	Running
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Running:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", int32(s))
	}
}

// Backend collects profiling samples and renders them in collapsed
// stack format.
type Backend interface {
	// State returns the current lifecycle state.
	State() State
	// Initialize configures the backend with the sampling frequency
	// in Hz. Valid only in the Uninitialized state.
	Initialize(sampleRate uint32) error
	// Start begins sample collection. Valid only in the Ready state.
	Start() error
	// Stop halts sample collection. Valid only in the Running state.
	Stop() error
	// Report renders the samples collected since the last report and
	// begins a new collection window. Valid only while Running. An
	// empty report means nothing was sampled in the window.
	Report() ([]byte, error)
	// SampleRate returns the configured sampling frequency in Hz.
	SampleRate() uint32
	// Units describes the sample values, e.g. "samples" or "bytes".
	Units() string
	// SpyName identifies the collector to the server.
	SpyName() string
}

// state wraps the lifecycle state shared by the built-in backends.
type state struct {
	v atomic.Int32
}

func (s *state) get() State {
	return State(s.v.Load())
}

func (s *state) set(st State) {
	s.v.Store(int32(st))
}

// transition enforces a lifecycle edge, returning an error naming the
// expected and actual states when the edge is invalid.
func (s *state) transition(from, to State) error {
	if !s.v.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("backend is %s, expected %s", s.get(), from)
	}
	return nil
}
