package agent

import (
	"errors"
	"fmt"
)

// Lifecycle errors returned by Start, Stop and the tag operations.
var (
	// ErrAlreadyStopped is returned when the agent has been stopped;
	// a stopped agent cannot be restarted.
	ErrAlreadyStopped = errors.New("agent already stopped")
	// ErrNotRunning is returned by operations that require at least
	// a started agent.
	ErrNotRunning = errors.New("agent is not running")
)

// ConfigError reports a Config field that failed validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}
