// Package hooks provides production-ready Logger, Hook, and
// MetricsCollector implementations for the processor.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/planora/image-service/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...any) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...any)  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...any)  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...any) { s.log.Error(msg, fields...) }

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each pipeline stage.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStage(_ context.Context, stage, path string) {
	h.logger.Debug("pipeline.stage.start", "stage", stage, "path", path)
}

func (h *LoggingHook) AfterStage(_ context.Context, stage, path string, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("pipeline.stage.error",
			"stage", stage,
			"path", path,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("pipeline.stage.done",
		"stage", stage,
		"path", path,
		"duration_ms", d.Milliseconds(),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates stage metrics; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.Mutex

	stageDurationsMs map[string]int64 // cumulative ms per stage
	stageCalls       map[string]int64
	stageErrors      map[string]int64
	processed        int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stageDurationsMs: make(map[string]int64),
		stageCalls:       make(map[string]int64),
		stageErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordStageDuration(stage string, d time.Duration) {
	m.mu.Lock()
	m.stageDurationsMs[stage] += d.Milliseconds()
	m.stageCalls[stage]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordError(stage string) {
	m.mu.Lock()
	m.stageErrors[stage]++
	m.mu.Unlock()
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StageDurationsMs map[string]int64
	StageCalls       map[string]int64
	StageErrors      map[string]int64
	Processed        int64
}

// Snapshot returns a copy of the current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		StageDurationsMs: make(map[string]int64, len(m.stageDurationsMs)),
		StageCalls:       make(map[string]int64, len(m.stageCalls)),
		StageErrors:      make(map[string]int64, len(m.stageErrors)),
		Processed:        m.processed,
	}
	for k, v := range m.stageDurationsMs {
		snap.StageDurationsMs[k] = v
	}
	for k, v := range m.stageCalls {
		snap.StageCalls[k] = v
	}
	for k, v := range m.stageErrors {
		snap.StageErrors[k] = v
	}
	return snap
}
