package core

import (
	"context"
	"time"
)

// Logger is a minimal structured logging interface.  Implementations live
// in the hooks package; the zero value of Processor logs nothing.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
}

// Hook is an optional observer invoked around pipeline stages.
type Hook interface {
	BeforeStage(ctx context.Context, stage, path string)
	AfterStage(ctx context.Context, stage, path string, d time.Duration, err error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordStageDuration(stage string, d time.Duration)
	RecordProcessed()
	RecordError(stage string)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
