// Package imageservice normalizes raster images into Document/Page records
// for the document-assembly consumer: validate → decode → flatten/resize →
// re-encode → extract metadata → thumbnail → assemble.
package imageservice

import (
	"context"

	"github.com/planora/image-service/config"
	"github.com/planora/image-service/core"
	"github.com/planora/image-service/document"
)

// Re-exported types for convenience.
type (
	ProcessOptions = core.ProcessOptions
	Result         = core.Result
	Document       = document.Document
	Page           = document.Page
	ImageMetadata  = document.ImageMetadata
)

// DefaultConfig returns the production configuration defaults.
func DefaultConfig() config.Config { return config.Default() }

// Processor is the primary entry point.
type Processor struct {
	inner *core.Processor
}

// New creates a fully wired Processor.  Pass a custom config.Config to
// override defaults; Validate it first when it comes from external input.
func New(cfg config.Config) *Processor {
	return &Processor{inner: core.New(cfg)}
}

// SetLogger attaches a structured logger.
func (p *Processor) SetLogger(l core.Logger) { p.inner.SetLogger(l) }

// SetMetrics attaches a metrics collector.
func (p *Processor) SetMetrics(m core.MetricsCollector) { p.inner.SetMetrics(m) }

// AddHook registers an observer for pipeline stage events.
func (p *Processor) AddHook(h core.Hook) { p.inner.AddHook(h) }

// Start starts the background worker pool used by ProcessAsync.
func (p *Processor) Start() { p.inner.Start() }

// Stop drains and shuts down the worker pool.
func (p *Processor) Stop() { p.inner.Stop() }

// Process runs the pipeline synchronously and returns a completed Document.
func (p *Processor) Process(ctx context.Context, path string, opts ProcessOptions) (*Document, error) {
	return p.inner.Process(ctx, path, opts)
}

// ProcessAsync offloads the pipeline to the worker pool; the returned
// channel delivers the eventual Result.
func (p *Processor) ProcessAsync(ctx context.Context, path string, opts ProcessOptions) (<-chan Result, error) {
	return p.inner.ProcessAsync(ctx, path, opts)
}

// SupportedFormats returns the input extension allow-list.
func (p *Processor) SupportedFormats() []string { return p.inner.SupportedFormats() }

// Stats returns lightweight processing statistics.
func (p *Processor) Stats() (processed, errors int64) {
	return p.inner.ProcessedCount(), p.inner.ErrorCount()
}

// Inner exposes the underlying core.Processor for advanced use (e.g.,
// direct stage observation in tests).  Prefer the high-level API.
func (p *Processor) Inner() *core.Processor { return p.inner }
