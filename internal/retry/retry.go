// Package retry provides the exponential backoff policy used by the upload
// pipeline to recover from transient delivery failures.
//
// The policy is plain data: Backoff computes the delay for a given attempt
// without side effects, so schedules can be asserted in tests without
// sleeping. Do drives the loop, honoring context cancellation during waits.
//
// # Basic Usage
//
//	pol := retry.Policy{
//	    MaxAttempts:    3,
//	    InitialBackoff: 500 * time.Millisecond,
//	    MaxBackoff:     10 * time.Second,
//	}
//
//	err := retry.Do(ctx, pol, func(attempt int) error {
//	    return transport.Send(ctx, req)
//	}, upstream.IsTransient)
//
// # Backoff Schedule
//
// The delay after the n-th failed attempt is InitialBackoff * 2^(n-1), capped
// at MaxBackoff. Optional jitter grows linearly with the attempt number to
// spread out concurrent retriers.
//
// # Context Cancellation
//
// If the context is canceled during a backoff wait, Do exits immediately with
// the context error; an in-flight attempt is never interrupted by Do itself.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Policy defines a bounded exponential backoff schedule.
//
// The zero value is not usable; MaxAttempts and InitialBackoff must be set.
type Policy struct {
	// MaxAttempts is the total delivery budget: the function passed to Do
	// is called at most MaxAttempts times. Must be at least 1.
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt. Each further
	// attempt doubles it: InitialBackoff * 2^(n-1) after n failures.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed delay. Zero means no cap.
	MaxBackoff time.Duration

	// Jitter spreads the delay (0.0 to 1.0): the added amount is
	// backoff * Jitter * n / MaxAttempts after n failures, so early
	// retries stay tight and later ones fan out.
	Jitter float64
}

// Backoff returns the delay to wait after `failures` consecutive failed
// attempts. It is a pure function of the policy, suitable for direct
// assertion in tests.
func (p Policy) Backoff(failures int) time.Duration {
	if failures < 1 {
		return 0
	}

	// Exponential backoff: 2^(failures-1) * InitialBackoff.
	multiplier := math.Pow(2, float64(failures-1))
	backoff := time.Duration(multiplier * float64(p.InitialBackoff))

	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}

	if p.Jitter > 0 && p.MaxAttempts > 0 {
		spread := float64(backoff) * p.Jitter * float64(failures) / float64(p.MaxAttempts)
		backoff += time.Duration(spread)
	}

	return backoff
}

// ShouldRetryFunc reports whether an error is worth another attempt.
// A nil function retries every error.
type ShouldRetryFunc func(error) bool

// Do executes fn with the policy's backoff schedule.
//
// fn receives the 1-based attempt number. If fn returns nil, Do returns nil
// immediately. If shouldRetry rejects the error, Do returns it unwrapped so
// callers can classify it. Once the attempt budget is spent, Do returns an
// error wrapping the last failure.
func Do(ctx context.Context, p Policy, fn func(attempt int) error, shouldRetry ShouldRetryFunc) error {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		// Wait out the backoff before every attempt but the first.
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff(attempt - 1)):
			}
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}

		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, lastErr)
}
