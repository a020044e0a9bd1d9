// Package upstream defines the delivery contract between the session
// manager and whatever carries finished profiles to a Pyroscope
// server.
package upstream

import (
	"context"
	"errors"
	"time"
)

// Request is one rendered profiling session ready for delivery.
type Request struct {
	// Name is the application name with the session's tag snapshot
	// already folded in, e.g. "my.app.cpu{env=staging,region=us-west-1}".
	Name string

	// StartTime and Until bound the session window. Both fall on
	// the rotation grid.
	StartTime time.Time
	Until     time.Time

	// SampleRate is the profiler frequency in Hz for this window.
	SampleRate uint32

	// Units describes the sample values, e.g. "samples" or "bytes".
	Units string

	// SpyName identifies the collector to the server.
	SpyName string

	// Payload is the rendered profile in collapsed (folded) format.
	Payload []byte

	// Attempts counts delivery attempts made for this request.
	Attempts int
}

// Upstream accepts requests for asynchronous delivery.
//
// Upload must not block the caller on network activity: the session
// loop hands a request over and immediately returns to profiling.
type Upstream interface {
	// Start launches the delivery loop.
	Start()
	// Upload queues a request for delivery. When the queue is full
	// the oldest queued request is discarded to make room.
	Upload(*Request)
	// Stop drains outstanding requests until ctx expires, then
	// shuts the delivery loop down.
	Stop(ctx context.Context) error
}

// Transport performs a single delivery attempt.
type Transport interface {
	Send(ctx context.Context, req *Request) error
}

// TransientError marks a delivery failure worth retrying, such as a
// 5xx response or a connection reset. Failures not wrapped in it are
// treated as permanent and the request is dropped without retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err to mark it retryable.
func Transient(err error) error {
	return &TransientError{Err: err}
}

// IsTransient reports whether err is marked retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
