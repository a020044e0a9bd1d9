package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_InvalidPeriod(t *testing.T) {
	_, err := Start(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	_, err = Start(-time.Second)
	require.Error(t, err)
}

func TestTimer_AlignedTicks(t *testing.T) {
	period := 50 * time.Millisecond
	tm, err := Start(period)
	require.NoError(t, err)
	defer tm.Stop()

	var ticks []time.Time
	for i := 0; i < 2; i++ {
		select {
		case tick, ok := <-tm.C:
			require.True(t, ok, "channel closed before enough ticks")
			ticks = append(ticks, tick)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for tick")
		}
	}

	for _, tick := range ticks {
		assert.Zero(t, tick.UnixNano()%int64(period),
			"tick %v not aligned to period boundary", tick)
	}
	assert.True(t, ticks[1].After(ticks[0]), "ticks must advance")
}

func TestTimer_StopClosesChannel(t *testing.T) {
	tm, err := Start(10 * time.Millisecond)
	require.NoError(t, err)

	tm.Stop()

	// One tick may still be buffered; drain until close.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-tm.C:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after Stop")
		}
	}
}

func TestTimer_StopIdempotent(t *testing.T) {
	tm, err := Start(10 * time.Millisecond)
	require.NoError(t, err)

	tm.Stop()
	tm.Stop() // must not panic or block
}

func TestTimer_NoBacklog(t *testing.T) {
	period := 100 * time.Millisecond
	tm, err := Start(period)
	require.NoError(t, err)
	defer tm.Stop()

	// Let several ticks fire without consuming any.
	time.Sleep(350 * time.Millisecond)

	available := 0
	for {
		select {
		case _, ok := <-tm.C:
			if ok {
				available++
				continue
			}
		default:
		}
		break
	}

	assert.Equal(t, 1, available, "only the most recent tick should be pending")
}
