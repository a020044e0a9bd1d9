package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/omarabid-archived/pyroscope/internal/stats"
	"github.com/omarabid-archived/pyroscope/pkg/agent/backend"
	"github.com/omarabid-archived/pyroscope/pkg/agent/upstream"
)

// Config contains session manager configuration.
type Config struct {
	// ApplicationName is the base name reported to the server. Tag
	// snapshots are folded into it per session.
	ApplicationName string
	// Tags seeds the mutable tag set.
	Tags map[string]string
	// Backend renders each window's report.
	Backend backend.Backend
	// Upstream receives finished sessions.
	Upstream upstream.Upstream
	// Logger is the parent logger.
	Logger zerolog.Logger
	// Metrics receives session counters. Optional; defaults to
	// instruments from the global meter provider.
	Metrics *stats.Metrics
}

// Manager tracks the active profiling window. Rotate closes the
// window at a boundary, renders it, and hands the result to the
// upstream without blocking on delivery.
//
// Begin and Rotate are driven by a single goroutine; only the tag
// set is safe for concurrent use.
type Manager struct {
	logger   zerolog.Logger
	metrics  *stats.Metrics
	appName  string
	backend  backend.Backend
	upstream upstream.Upstream
	tags     *TagSet

	start time.Time
}

// NewManager creates a session manager.
func NewManager(cfg Config) *Manager {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = stats.Default()
	}

	return &Manager{
		logger:   cfg.Logger.With().Str("component", "session_manager").Logger(),
		metrics:  metrics,
		appName:  cfg.ApplicationName,
		backend:  cfg.Backend,
		upstream: cfg.Upstream,
		tags:     NewTagSet(cfg.Tags),
	}
}

// Tags exposes the mutable tag set.
func (m *Manager) Tags() *TagSet {
	return m.tags
}

// Begin opens the first window at start. The window may be shorter
// than a full period; the server aligns it to its own grid.
func (m *Manager) Begin(start time.Time) {
	m.start = start
}

// Rotate closes the window ending at until and opens the next one.
//
// A window that would not move time forward is skipped. A window
// whose report fails to render, or renders empty, is dropped; the
// next window still starts at until, so the timeline stays
// contiguous.
func (m *Manager) Rotate(ctx context.Context, until time.Time) {
	if !until.After(m.start) {
		m.logger.Warn().
			Time("start", m.start).
			Time("until", until).
			Msg("Skipping rotation for non-positive window")
		return
	}

	renderStart := time.Now()
	report, err := m.backend.Report()
	if err != nil {
		m.metrics.SessionsDropped.Add(ctx, 1, stats.WithReason(stats.ReasonRenderError))
		m.logger.Error().Err(err).
			Time("start", m.start).
			Time("until", until).
			Msg("Failed to render session report")
		m.start = until
		return
	}
	m.metrics.RenderDuration.Record(ctx, time.Since(renderStart).Seconds())

	if len(report) == 0 {
		m.metrics.SessionsDropped.Add(ctx, 1, stats.WithReason(stats.ReasonEmpty))
		m.logger.Debug().
			Time("start", m.start).
			Time("until", until).
			Msg("Session window rendered empty, nothing to upload")
		m.start = until
		return
	}

	tags := m.tags.Snapshot()
	sess := &Session{
		ID:         uuid.New().String(),
		StartTime:  m.start,
		Until:      until,
		Tags:       tags,
		Report:     report,
		SampleRate: m.backend.SampleRate(),
		Units:      m.backend.Units(),
		SpyName:    m.backend.SpyName(),
	}

	m.upstream.Upload(&upstream.Request{
		Name:       mergeTagsWithAppName(m.appName, tags),
		StartTime:  sess.StartTime,
		Until:      sess.Until,
		SampleRate: sess.SampleRate,
		Units:      sess.Units,
		SpyName:    sess.SpyName,
		Payload:    sess.Report,
	})
	m.metrics.SessionsProduced.Add(ctx, 1)

	m.logger.Debug().
		Str("session_id", sess.ID).
		Time("start", sess.StartTime).
		Time("until", sess.Until).
		Int("report_bytes", len(sess.Report)).
		Int("tags", len(tags)).
		Msg("Session handed to uploader")

	m.start = until
}
