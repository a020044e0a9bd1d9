// Package stats holds the agent's OpenTelemetry instruments.
package stats

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ScopeName is the instrumentation scope reported with every metric.
const ScopeName = "github.com/omarabid-archived/pyroscope"

// Drop reasons recorded on SessionsDropped.
const (
	ReasonQueueFull   = "queue_full"
	ReasonRenderError = "render_error"
	ReasonEmpty       = "empty"
	ReasonExhausted   = "retries_exhausted"
	ReasonRejected    = "rejected"
	ReasonStopped     = "stopped"
)

// Metrics holds all agent metric instruments.
type Metrics struct {
	SessionsProduced metric.Int64Counter
	SessionsDropped  metric.Int64Counter
	UploadAttempts   metric.Int64Counter
	UploadsCompleted metric.Int64Counter
	UploadBytes      metric.Int64Counter
	QueueDepth       metric.Int64UpDownCounter
	RenderDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments from the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.SessionsProduced, err = meter.Int64Counter("pyroscope.sessions.produced",
		metric.WithDescription("Profiling sessions handed to the uploader"),
	)
	if err != nil {
		return nil, err
	}

	m.SessionsDropped, err = meter.Int64Counter("pyroscope.sessions.dropped",
		metric.WithDescription("Profiling sessions discarded before delivery"),
	)
	if err != nil {
		return nil, err
	}

	m.UploadAttempts, err = meter.Int64Counter("pyroscope.upload.attempts",
		metric.WithDescription("Individual upload attempts including retries"),
	)
	if err != nil {
		return nil, err
	}

	m.UploadsCompleted, err = meter.Int64Counter("pyroscope.upload.completed",
		metric.WithDescription("Upload outcomes after retries are exhausted or delivery succeeds"),
	)
	if err != nil {
		return nil, err
	}

	m.UploadBytes, err = meter.Int64Counter("pyroscope.upload.bytes",
		metric.WithDescription("Profile payload bytes delivered to the server"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	m.QueueDepth, err = meter.Int64UpDownCounter("pyroscope.queue.depth",
		metric.WithDescription("Sessions waiting in the upload queue"),
	)
	if err != nil {
		return nil, err
	}

	m.RenderDuration, err = meter.Float64Histogram("pyroscope.render.duration",
		metric.WithDescription("Time spent rendering a session's profile"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Default returns instruments backed by the global meter provider.
// Instrument creation only fails on invalid names, so the no-op
// fallback is unreachable in practice.
func Default() *Metrics {
	m, err := NewMetrics(otel.GetMeterProvider().Meter(ScopeName))
	if err != nil {
		m, _ = NewMetrics(noop.NewMeterProvider().Meter(ScopeName))
	}
	return m
}

// WithReason labels a SessionsDropped increment with the drop reason.
func WithReason(reason string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("reason", reason))
}

// WithOutcome labels an UploadsCompleted increment as success or failure.
func WithOutcome(ok bool) metric.MeasurementOption {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	return metric.WithAttributes(attribute.String("outcome", outcome))
}
