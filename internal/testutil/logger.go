package testutil

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger creates a test logger that discards output.
// Use NewTestLoggerWithOutput to log to t.Log().
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(io.Discard)
}

// NewTestLoggerWithOutput creates a test logger that writes through
// t.Log(), so output shows up only for failing tests or with -v.
func NewTestLoggerWithOutput(t *testing.T) zerolog.Logger {
	t.Helper()
	out := zerolog.ConsoleWriter{Out: &testLogWriter{t: t}, NoColor: true}
	return zerolog.New(out).With().Timestamp().Logger()
}

// testLogWriter wraps testing.T to implement io.Writer.
type testLogWriter struct {
	t *testing.T
}

func (w *testLogWriter) Write(p []byte) (n int, err error) {
	w.t.Log(string(p))
	return len(p), nil
}
