package backend

import (
	"bytes"
	"fmt"
	"runtime/pprof"
	"sync"
)

// Alloc tracks heap allocations through the runtime's cumulative
// allocs profile and reports per-window deltas in bytes.
//
// The runtime publishes allocation records at garbage collection
// boundaries, so a window's allocations can surface one report late.
// Totals across windows are exact.
type Alloc struct {
	mu         sync.Mutex
	st         state
	sampleRate uint32
	prev       map[string]int64
}

// NewAlloc returns an uninitialized allocation backend.
func NewAlloc() *Alloc {
	return &Alloc{}
}

func (a *Alloc) State() State { return a.st.get() }

func (a *Alloc) Initialize(sampleRate uint32) error {
	if sampleRate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if err := a.st.transition(Uninitialized, Ready); err != nil {
		return err
	}
	a.sampleRate = sampleRate
	return nil
}

// Start snapshots the cumulative profile so the first report covers
// only allocations made after this point.
func (a *Alloc) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.st.transition(Ready, Running); err != nil {
		return err
	}
	baseline, err := a.snapshot()
	if err != nil {
		a.st.set(Ready)
		return err
	}
	a.prev = baseline
	return nil
}

func (a *Alloc) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.st.transition(Running, Ready); err != nil {
		return err
	}
	a.prev = nil
	return nil
}

// Report renders the bytes allocated since the previous report.
func (a *Alloc) Report() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if st := a.st.get(); st != Running {
		return nil, fmt.Errorf("backend is %s, expected %s", st, Running)
	}

	cur, err := a.snapshot()
	if err != nil {
		return nil, err
	}
	delta := diffStacks(cur, a.prev)
	a.prev = cur
	return renderFolded(delta), nil
}

func (a *Alloc) SampleRate() uint32 { return a.sampleRate }

func (a *Alloc) Units() string { return UnitsBytes }

func (a *Alloc) SpyName() string { return SpyName }

// snapshot folds the cumulative allocs profile by alloc_space.
func (a *Alloc) snapshot() (map[string]int64, error) {
	prof := pprof.Lookup("allocs")
	if prof == nil {
		return nil, fmt.Errorf("allocs profile not available")
	}
	var buf bytes.Buffer
	if err := prof.WriteTo(&buf, 0); err != nil {
		return nil, fmt.Errorf("writing allocs profile: %w", err)
	}
	p, err := parse(buf.Bytes())
	if err != nil {
		return nil, err
	}
	return foldStacks(p, "alloc_space")
}

// diffStacks returns cur minus prev per stack, keeping only positive
// deltas. Cumulative counters never regress, so a missing or smaller
// previous value means new allocations.
func diffStacks(cur, prev map[string]int64) map[string]int64 {
	delta := make(map[string]int64)
	for stack, v := range cur {
		if d := v - prev[stack]; d > 0 {
			delta[stack] = d
		}
	}
	return delta
}
