package agent

import (
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/omarabid-archived/pyroscope/pkg/agent/backend"
	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream"
)

// Defaults applied by New for zero-valued Config fields.
const (
	DefaultPeriod          = 10 * time.Second
	DefaultSampleRate      = 100
	DefaultQueueCapacity   = 10
	DefaultMaxRetries      = 3
	DefaultShutdownTimeout = 5 * time.Second
	DefaultHTTPTimeout     = 10 * time.Second
)

// Retry backoff applied between upload attempts.
const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultJitter         = 0.25
)

// Config contains agent configuration options.
type Config struct {
	// ApplicationName is the name profiles are filed under on the
	// server, conventionally suffixed with the profile type, e.g.
	// "my.service.cpu" (required).
	ApplicationName string

	// ServerAddress is the base URL of the Pyroscope server
	// (required unless Upstream or Transport is set).
	ServerAddress string

	// AuthToken, when set, authenticates uploads with a bearer
	// token.
	AuthToken string

	// Tags seeds the agent's tag set. Tags can be changed while the
	// agent runs; each session closes with the tags current at its
	// boundary.
	Tags map[string]string

	// Period is the session length. Session boundaries fall on
	// wall-clock multiples of it. Defaults to 10s.
	Period time.Duration

	// SampleRate is the profiler frequency in Hz. Defaults to 100.
	SampleRate uint32

	// UploadQueueCapacity bounds sessions waiting for upload; the
	// oldest is discarded when full. Defaults to 10.
	UploadQueueCapacity int

	// MaxRetries is the number of delivery attempts per session.
	// Defaults to 3.
	MaxRetries int

	// ShutdownTimeout bounds how long Stop waits for queued
	// sessions to drain. Defaults to 5s.
	ShutdownTimeout time.Duration

	// HTTPTimeout bounds each upload attempt. Defaults to 10s.
	HTTPTimeout time.Duration

	// Backend overrides the profiler. Defaults to the CPU backend.
	Backend backend.Backend

	// Transport overrides how sessions are sent, keeping the
	// built-in queueing and retries.
	Transport upstream.Transport

	// Upstream replaces the delivery pipeline entirely.
	Upstream upstream.Upstream

	// Logger is the logger instance (optional, defaults to
	// zerolog.Nop()).
	Logger zerolog.Logger

	// MeterProvider receives agent metrics (optional, defaults to
	// the global provider).
	MeterProvider metric.MeterProvider
}

func (c Config) validate() error {
	if c.ApplicationName == "" {
		return &ConfigError{Field: "ApplicationName", Reason: "must not be empty"}
	}
	if c.ServerAddress == "" && c.Upstream == nil && c.Transport == nil {
		return &ConfigError{Field: "ServerAddress", Reason: "must not be empty"}
	}
	if c.Period < 0 {
		return &ConfigError{Field: "Period", Reason: "must be positive"}
	}
	if c.UploadQueueCapacity < 0 {
		return &ConfigError{Field: "UploadQueueCapacity", Reason: "must be positive"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "MaxRetries", Reason: "must be positive"}
	}
	if c.ShutdownTimeout < 0 {
		return &ConfigError{Field: "ShutdownTimeout", Reason: "must be positive"}
	}
	if c.HTTPTimeout < 0 {
		return &ConfigError{Field: "HTTPTimeout", Reason: "must be positive"}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.UploadQueueCapacity == 0 {
		c.UploadQueueCapacity = DefaultQueueCapacity
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	return c
}
