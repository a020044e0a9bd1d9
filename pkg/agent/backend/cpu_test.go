package backend

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var foldedLine = regexp.MustCompile(`^.+ \d+$`)

//go:noinline
func burnCPU(d time.Duration) int {
	deadline := time.Now().Add(d)
	n := 0
	for time.Now().Before(deadline) {
		for i := 0; i < 1000; i++ {
			n += i * i
		}
	}
	return n
}

func TestCPU_Lifecycle(t *testing.T) {
	c := NewCPU()
	assert.Equal(t, Uninitialized, c.State())

	require.NoError(t, c.Initialize(100))
	assert.Equal(t, Ready, c.State())

	require.NoError(t, c.Start())
	assert.Equal(t, Running, c.State())

	_, err := c.Report()
	require.NoError(t, err)
	assert.Equal(t, Running, c.State(), "report keeps the backend running")

	require.NoError(t, c.Stop())
	assert.Equal(t, Ready, c.State())

	// A stopped backend can be started again.
	require.NoError(t, c.Start())
	require.NoError(t, c.Stop())
}

func TestCPU_InvalidTransitions(t *testing.T) {
	c := NewCPU()

	require.Error(t, c.Start(), "start before initialize")
	require.Error(t, c.Stop(), "stop before initialize")
	_, err := c.Report()
	require.Error(t, err, "report before initialize")

	require.NoError(t, c.Initialize(100))
	err = c.Initialize(100)
	require.Error(t, err, "second initialize")
	assert.Contains(t, err.Error(), "expected uninitialized")

	_, err = c.Report()
	require.Error(t, err, "report while ready")
	assert.Contains(t, err.Error(), "expected running")
}

func TestCPU_InitializeZeroRate(t *testing.T) {
	c := NewCPU()
	err := c.Initialize(0)
	require.Error(t, err)
	assert.Equal(t, Uninitialized, c.State())
}

func TestCPU_ReportOutput(t *testing.T) {
	c := NewCPU()
	require.NoError(t, c.Initialize(100))
	require.NoError(t, c.Start())
	defer c.Stop()

	burnCPU(150 * time.Millisecond)

	folded, err := c.Report()
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimRight(string(folded), "\n"), "\n") {
		if line == "" {
			continue
		}
		assert.Regexp(t, foldedLine, line)
	}
}

func TestCPU_Metadata(t *testing.T) {
	c := NewCPU()
	require.NoError(t, c.Initialize(100))

	assert.Equal(t, uint32(100), c.SampleRate())
	assert.Equal(t, UnitsSamples, c.Units())
	assert.Equal(t, SpyName, c.SpyName())
}
