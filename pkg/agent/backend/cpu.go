package backend

import (
	"bytes"
	"fmt"
	"runtime/pprof"
	"sync"
)

// CPU collects CPU samples through the runtime profiler and reports
// them in collapsed format with "samples" units.
//
// The Go runtime samples at a fixed 100Hz regardless of the
// configured rate; SampleRate is what gets reported to the server and
// should normally be left at the default.
type CPU struct {
	mu         sync.Mutex
	st         state
	buf        bytes.Buffer
	sampleRate uint32
}

// NewCPU returns an uninitialized CPU backend.
func NewCPU() *CPU {
	return &CPU{}
}

func (c *CPU) State() State { return c.st.get() }

func (c *CPU) Initialize(sampleRate uint32) error {
	if sampleRate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if err := c.st.transition(Uninitialized, Ready); err != nil {
		return err
	}
	c.sampleRate = sampleRate
	return nil
}

func (c *CPU) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.st.transition(Ready, Running); err != nil {
		return err
	}
	c.buf.Reset()
	if err := pprof.StartCPUProfile(&c.buf); err != nil {
		c.st.set(Ready)
		return fmt.Errorf("starting cpu profile: %w", err)
	}
	return nil
}

func (c *CPU) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.st.transition(Running, Ready); err != nil {
		return err
	}
	pprof.StopCPUProfile()
	c.buf.Reset()
	return nil
}

// Report closes the current profile, renders it, and immediately
// opens the next collection window.
func (c *CPU) Report() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if st := c.st.get(); st != Running {
		return nil, fmt.Errorf("backend is %s, expected %s", st, Running)
	}

	pprof.StopCPUProfile()
	raw := make([]byte, c.buf.Len())
	copy(raw, c.buf.Bytes())
	c.buf.Reset()

	if err := pprof.StartCPUProfile(&c.buf); err != nil {
		c.st.set(Ready)
		return nil, fmt.Errorf("restarting cpu profile: %w", err)
	}

	folded, err := fold(raw, "samples")
	if err != nil {
		return nil, err
	}
	return folded, nil
}

func (c *CPU) SampleRate() uint32 { return c.sampleRate }

func (c *CPU) Units() string { return UnitsSamples }

func (c *CPU) SpyName() string { return SpyName }
