// Package remote delivers profiling sessions to a Pyroscope server.
//
// Sessions wait in a bounded queue and a single goroutine delivers
// them in order, retrying transient failures with exponential
// backoff. The queue evicts its oldest entry when full, so a slow or
// unreachable server costs the oldest profiles, never fresh ones and
// never the profiled application's time.
package remote

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarabid-archived/pyroscope/internal/retry"
	"github.com/omarabid-archived/pyroscope/internal/stats"
	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream"
)

// Config contains uploader configuration.
type Config struct {
	// Transport performs individual delivery attempts.
	Transport upstream.Transport
	// QueueCapacity bounds the number of sessions waiting for
	// delivery.
	QueueCapacity int
	// Retry governs attempts per session and the backoff between
	// them.
	Retry retry.Policy
	// Logger is the parent logger.
	Logger zerolog.Logger
	// Metrics receives uploader counters. Optional; defaults to
	// instruments from the global meter provider.
	Metrics *stats.Metrics
}

// Remote is an Upstream that ships sessions over a Transport.
type Remote struct {
	logger    zerolog.Logger
	metrics   *stats.Metrics
	transport upstream.Transport
	queue     *upstream.Queue
	policy    retry.Policy

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
}

// New creates a Remote uploader. Start must be called before
// uploaded sessions are delivered.
func New(cfg Config) *Remote {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = stats.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Remote{
		logger:    cfg.Logger.With().Str("component", "uploader").Logger(),
		metrics:   metrics,
		transport: cfg.Transport,
		queue:     upstream.NewQueue(cfg.QueueCapacity),
		policy:    cfg.Retry,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

// Start launches the delivery loop. Calling Start more than once has
// no effect.
func (r *Remote) Start() {
	if r.started.Swap(true) {
		return
	}
	go r.loop()
}

// Upload queues a session for delivery and returns immediately. When
// the queue is full the oldest waiting session is discarded.
func (r *Remote) Upload(req *upstream.Request) {
	evicted := r.queue.Push(req)
	if evicted == req {
		r.metrics.SessionsDropped.Add(r.ctx, 1, stats.WithReason(stats.ReasonStopped))
		r.logger.Debug().
			Str("name", req.Name).
			Msg("Uploader stopped, discarding session")
		return
	}

	r.metrics.QueueDepth.Add(r.ctx, 1)
	if evicted != nil {
		r.metrics.QueueDepth.Add(r.ctx, -1)
		r.metrics.SessionsDropped.Add(r.ctx, 1, stats.WithReason(stats.ReasonQueueFull))
		r.logger.Warn().
			Str("name", evicted.Name).
			Time("start", evicted.StartTime).
			Msg("Upload queue full, discarding oldest session")
	}
}

// Stop closes the queue and waits for queued sessions to drain. When
// ctx expires first, the in-flight delivery is aborted and its error
// returned.
func (r *Remote) Stop(ctx context.Context) error {
	r.queue.Close()
	if !r.started.Load() {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.cancel()
		<-r.done
		return ctx.Err()
	}
}

func (r *Remote) loop() {
	defer close(r.done)

	for {
		req, ok := r.queue.Pop()
		if !ok {
			return
		}
		r.metrics.QueueDepth.Add(r.ctx, -1)
		r.deliver(req)
	}
}

// deliver attempts a single session until it succeeds, retries are
// exhausted, or the failure is permanent. However it ends, exactly
// one completion is recorded.
func (r *Remote) deliver(req *upstream.Request) {
	start := time.Now()

	err := retry.Do(r.ctx, r.policy, func(attempt int) error {
		req.Attempts = attempt
		r.metrics.UploadAttempts.Add(r.ctx, 1)
		return r.transport.Send(r.ctx, req)
	}, upstream.IsTransient)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			r.metrics.UploadsCompleted.Add(r.ctx, 1, stats.WithOutcome(false))
			r.metrics.SessionsDropped.Add(r.ctx, 1, stats.WithReason(stats.ReasonStopped))
			r.logger.Warn().
				Str("name", req.Name).
				Msg("Upload aborted during shutdown")
			return
		}

		reason := stats.ReasonRejected
		if upstream.IsTransient(err) {
			reason = stats.ReasonExhausted
		}
		r.metrics.UploadsCompleted.Add(r.ctx, 1, stats.WithOutcome(false))
		r.metrics.SessionsDropped.Add(r.ctx, 1, stats.WithReason(reason))
		r.logger.Error().Err(err).
			Str("name", req.Name).
			Time("start", req.StartTime).
			Int("attempts", req.Attempts).
			Msg("Failed to upload session")
		return
	}

	r.metrics.UploadsCompleted.Add(r.ctx, 1, stats.WithOutcome(true))
	r.metrics.UploadBytes.Add(r.ctx, int64(len(req.Payload)))
	r.logger.Debug().
		Str("name", req.Name).
		Int("attempts", req.Attempts).
		Int("bytes", len(req.Payload)).
		Dur("took", time.Since(start)).
		Msg("Session uploaded")
}
