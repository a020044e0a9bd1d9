package retry_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omarabid-archived/pyroscope/internal/retry"
)

var ErrTransient = errors.New("transient error")

// Example demonstrates basic retry usage with exponential backoff.
func Example() {
	pol := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		Jitter:         0.1,
	}

	attempts := 0
	err := retry.Do(context.Background(), pol, func(attempt int) error {
		attempts = attempt
		if attempt < 3 {
			return ErrTransient
		}
		return nil
	}, func(err error) bool {
		return errors.Is(err, ErrTransient)
	})

	if err != nil {
		fmt.Printf("Failed: %v\n", err)
	} else {
		fmt.Printf("Succeeded after %d attempts\n", attempts)
	}
	// Output: Succeeded after 3 attempts
}

// Example_upload demonstrates retrying an upload that fails transiently.
func Example_upload() {
	pol := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Millisecond,
		Jitter:         0.5,
	}

	err := retry.Do(context.Background(), pol, func(attempt int) error {
		// Simulate a send that might hit a transient server error.
		return nil
	}, func(err error) bool {
		// Only retry on transient failures.
		return errors.Is(err, ErrTransient)
	})

	if err != nil {
		fmt.Printf("Upload failed: %v\n", err)
	} else {
		fmt.Println("Upload succeeded")
	}
	// Output: Upload succeeded
}

// Example_withTimeout demonstrates using a context with timeout.
func Example_withTimeout() {
	pol := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := retry.Do(ctx, pol, func(int) error {
		return errors.New("always fails")
	}, nil)

	if errors.Is(err, context.DeadlineExceeded) {
		fmt.Println("Operation timed out")
	} else {
		fmt.Printf("Failed: %v\n", err)
	}
	// Output: Operation timed out
}
