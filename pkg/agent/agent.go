// Package agent embeds a continuous profiler in a Go application.
//
// The agent slices time into fixed sessions aligned to the wall
// clock, renders a profile for each one, and uploads the results to a
// Pyroscope server in the background. Profiling never waits on the
// network: finished sessions go through a bounded queue that sheds
// its oldest entry under backpressure.
//
// # Basic Usage
//
//	a, err := agent.New(agent.Config{
//		ApplicationName: "my.service.cpu",
//		ServerAddress:   "http://localhost:4040",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := a.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer a.Stop()
package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/omarabid-archived/pyroscope/internal/retry"
	"github.com/omarabid-archived/pyroscope/internal/stats"
	"github.com/omarabid-archived/pyroscope/internal/timer"
	"github.com/omarabid-archived/pyroscope/pkg/agent/backend"
	"github.com/omarabid-archived/pyroscope/pkg/agent/session"
	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream"
	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream/remote"
)

// State is the agent lifecycle state.
type State int32

const (
	// Uninitialized means the agent was created but not started.
	Uninitialized State = iota
	// Running means sessions are being profiled and uploaded.
	Running
	// Stopped means the agent has shut down. A stopped agent cannot
	// be restarted.
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Agent is a continuous profiling agent.
type Agent struct {
	logger  zerolog.Logger
	metrics *stats.Metrics
	cfg     Config

	backend  backend.Backend
	upstream upstream.Upstream
	manager  *session.Manager

	mu    sync.Mutex
	state atomic.Int32

	timer  *timer.Timer
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an agent from cfg. The agent does nothing until Start
// is called.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "pyroscope_agent").Logger()

	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	metrics, err := stats.NewMetrics(mp.Meter(stats.ScopeName))
	if err != nil {
		return nil, err
	}

	b := cfg.Backend
	if b == nil {
		b = backend.NewCPU()
	}

	up := cfg.Upstream
	if up == nil {
		transport := cfg.Transport
		if transport == nil {
			transport, err = remote.NewHTTPTransport(remote.TransportConfig{
				ServerAddress: cfg.ServerAddress,
				AuthToken:     cfg.AuthToken,
				Timeout:       cfg.HTTPTimeout,
				Logger:        logger,
			})
			if err != nil {
				return nil, &ConfigError{Field: "ServerAddress", Reason: err.Error()}
			}
		}
		up = remote.New(remote.Config{
			Transport:     transport,
			QueueCapacity: cfg.UploadQueueCapacity,
			Retry: retry.Policy{
				MaxAttempts:    cfg.MaxRetries,
				InitialBackoff: defaultInitialBackoff,
				MaxBackoff:     defaultMaxBackoff,
				Jitter:         defaultJitter,
			},
			Logger:  logger,
			Metrics: metrics,
		})
	}

	a := &Agent{
		logger:   logger,
		metrics:  metrics,
		cfg:      cfg,
		backend:  b,
		upstream: up,
		manager: session.NewManager(session.Config{
			ApplicationName: cfg.ApplicationName,
			Tags:            cfg.Tags,
			Backend:         b,
			Upstream:        up,
			Logger:          logger,
			Metrics:         metrics,
		}),
	}

	logger.Info().
		Str("application", cfg.ApplicationName).
		Str("server", cfg.ServerAddress).
		Dur("period", cfg.Period).
		Msg("Profiling agent initialized")

	return a, nil
}

// Start initializes the profiler and launches the session and upload
// loops. Starting a running agent is a no-op; a stopped agent stays
// stopped.
func (a *Agent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch State(a.state.Load()) {
	case Running:
		return nil
	case Stopped:
		return ErrAlreadyStopped
	}

	if a.backend.State() == backend.Uninitialized {
		if err := a.backend.Initialize(a.cfg.SampleRate); err != nil {
			return fmt.Errorf("initializing backend: %w", err)
		}
	}
	if err := a.backend.Start(); err != nil {
		return fmt.Errorf("starting backend: %w", err)
	}

	tm, err := timer.Start(a.cfg.Period)
	if err != nil {
		if stopErr := a.backend.Stop(); stopErr != nil {
			a.logger.Error().Err(stopErr).Msg("Failed to stop backend during rollback")
		}
		return fmt.Errorf("starting session timer: %w", err)
	}
	a.timer = tm

	a.upstream.Start()

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.manager.Begin(time.Now())

	a.wg.Add(1)
	go a.run()

	a.state.Store(int32(Running))
	a.logger.Info().Msg("Profiling agent started")
	return nil
}

// run rotates sessions on timer ticks until the agent stops.
func (a *Agent) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.ctx.Done():
			return
		case tick, ok := <-a.timer.C:
			if !ok {
				return
			}
			a.manager.Rotate(a.ctx, tick)
		}
	}
}

// Stop flushes the in-progress session, stops the profiler, and
// waits up to ShutdownTimeout for queued uploads to drain. It
// returns the drain error, if any; the agent is stopped either way.
// Stopping an already stopped agent is a no-op.
func (a *Agent) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch State(a.state.Load()) {
	case Uninitialized:
		return ErrNotRunning
	case Stopped:
		return nil
	}

	a.logger.Info().Msg("Stopping profiling agent")

	a.timer.Stop()
	a.cancel()
	a.wg.Wait()

	// Flush the partial window so its samples are not lost.
	a.manager.Rotate(context.Background(), time.Now())

	if err := a.backend.Stop(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to stop backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	err := a.upstream.Stop(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("Upload queue did not fully drain")
	}

	a.state.Store(int32(Stopped))
	a.logger.Info().Msg("Profiling agent stopped")
	return err
}

// State returns the agent lifecycle state.
func (a *Agent) State() State {
	return State(a.state.Load())
}

// AddTag sets a tag on sessions closing after this call.
func (a *Agent) AddTag(key, value string) error {
	switch a.State() {
	case Stopped:
		return ErrAlreadyStopped
	case Uninitialized:
		return ErrNotRunning
	}
	return a.manager.Tags().Set(key, value)
}

// RemoveTag removes a tag from sessions closing after this call.
func (a *Agent) RemoveTag(key string) error {
	switch a.State() {
	case Stopped:
		return ErrAlreadyStopped
	case Uninitialized:
		return ErrNotRunning
	}
	a.manager.Tags().Delete(key)
	return nil
}
