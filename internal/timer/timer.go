// Package timer emits wall-clock-aligned ticks that drive session
// rotation.
//
// Ticks land on multiples of the period (for a 10s period: :00, :10,
// :20, ...), so session boundaries from every process in a fleet fall
// on the same grid. The tick channel holds at most one pending tick;
// if the consumer is still busy when the next tick fires, that tick
// is dropped rather than queued, so a slow consumer never works
// through a backlog of stale boundaries.
package timer

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Timer delivers aligned ticks on C until Stop is called.
type Timer struct {
	// C receives the aligned boundary time of each tick. It is
	// closed after Stop, once no further ticks will be sent.
	C <-chan time.Time

	period time.Duration
	ticks  chan time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Start creates a Timer ticking at every wall-clock multiple of
// period. The first tick fires at the next boundary, not immediately.
func Start(period time.Duration) (*Timer, error) {
	if period <= 0 {
		return nil, fmt.Errorf("timer period must be positive, got %v", period)
	}

	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time, 1)

	t := &Timer{
		C:      ticks,
		period: period,
		ticks:  ticks,
		ctx:    ctx,
		cancel: cancel,
	}

	t.wg.Add(1)
	go t.loop()

	return t, nil
}

// Stop terminates the tick loop and closes C. It blocks until the
// loop has exited and is safe to call more than once.
func (t *Timer) Stop() {
	t.once.Do(func() {
		t.cancel()
		t.wg.Wait()
	})
}

func (t *Timer) loop() {
	defer t.wg.Done()
	defer close(t.ticks)

	for {
		// Recompute the boundary from the wall clock each
		// iteration, so the grid survives scheduling delays and
		// process suspends.
		now := time.Now()
		next := now.Truncate(t.period).Add(t.period)

		fire := time.NewTimer(next.Sub(now))
		select {
		case <-t.ctx.Done():
			fire.Stop()
			return
		case <-fire.C:
		}

		// Drop the tick if the previous one has not been
		// consumed yet.
		select {
		case t.ticks <- next:
		default:
		}
	}
}
