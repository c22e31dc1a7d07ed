// Package core implements the image-processing orchestrator: validation,
// decode, normalization, persistence, metadata extraction, and assembly of
// the Document/Page entities.  Each request runs strictly sequentially on a
// single worker; concurrency exists only across requests via a bounded
// worker pool.
package core

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/planora/image-service/config"
	"github.com/planora/image-service/document"
	apperrors "github.com/planora/image-service/errors"
	"github.com/planora/image-service/metadata"
	"github.com/planora/image-service/normalize"
	"github.com/planora/image-service/storage"
)

// Pipeline stage names reported to hooks and metrics.
const (
	StageValidate  = "validate"
	StageDecode    = "decode"
	StageNormalize = "normalize"
	StagePersist   = "persist"
	StageThumbnail = "thumbnail"
	StageMetadata  = "metadata"
	StageAssemble  = "assemble"
)

// ProcessOptions carries per-request processing options.
type ProcessOptions struct {
	Workspace    string // optional workspace override
	OutputFormat string // "webp" or "jpeg"; empty uses the configured default
	DocumentID   string // optional caller-supplied document id
}

// Result wraps the outcome of an async job.
type Result struct {
	Document *document.Document
	Err      error
}

// Job is a single unit of work for the worker pool.
type Job struct {
	Ctx      context.Context
	Path     string
	Options  ProcessOptions
	ResultCh chan<- Result
}

// Processor is the central orchestrator.  It is safe for concurrent use.
// Call Start before submitting async jobs; call Stop when done.
type Processor struct {
	cfg       config.Config
	store     *storage.Store
	extractor *metadata.Extractor
	logger    Logger
	metrics   MetricsCollector
	hooks     []Hook

	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	shutdown chan struct{}

	processedCount int64
	errorCount     int64
}

// New creates a Processor with the given config.
func New(cfg config.Config) *Processor {
	workerCount := cfg.WorkerCount
	if workerCount <= 0 {
		workerCount = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	cfg.WorkerCount = workerCount
	return &Processor{
		cfg:       cfg,
		store:     storage.NewStore(cfg),
		extractor: metadata.NewExtractor(cfg),
		logger:    nopLogger{},
		jobQueue:  make(chan Job, queueSize),
		shutdown:  make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (p *Processor) SetLogger(l Logger) {
	if l != nil {
		p.logger = l
	}
}

// SetMetrics attaches a metrics collector.
func (p *Processor) SetMetrics(m MetricsCollector) { p.metrics = m }

// AddHook registers a pipeline stage observer.
func (p *Processor) AddHook(h Hook) { p.hooks = append(p.hooks, h) }

// SupportedFormats returns a copy of the input extension allow-list.
func (p *Processor) SupportedFormats() []string {
	out := make([]string, len(p.cfg.SupportedExtensions))
	copy(out, p.cfg.SupportedExtensions)
	return out
}

// Start launches the worker pool.  It is idempotent.
func (p *Processor) Start() {
	p.once.Do(func() {
		for i := 0; i < p.cfg.WorkerCount; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop shuts down the worker pool, blocking until all in-flight work drains.
func (p *Processor) Stop() {
	close(p.shutdown)
	p.wg.Wait()
}

// Validate checks that path names an existing, non-empty regular file whose
// extension is in the configured allow-list.  It performs read-only stat
// calls and has no side effects.
func (p *Processor) Validate(path string) error {
	if strings.TrimSpace(path) == "" {
		return apperrors.New(apperrors.CategoryInput, "validate", apperrors.ErrEmptyPath)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewPath(apperrors.CategoryInput, "validate", path, apperrors.ErrFileNotFound)
		}
		return apperrors.Wrap(apperrors.CategoryInput, "validate.stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return apperrors.NewPath(apperrors.CategoryInput, "validate", path, apperrors.ErrNotAFile)
	}
	if info.Size() == 0 {
		return apperrors.NewPath(apperrors.CategoryInput, "validate", path, apperrors.ErrEmptyFile)
	}
	if !p.cfg.IsSupportedFormat(path) {
		return apperrors.NewPath(apperrors.CategoryInput, "validate", path,
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedExtension, filepath.Ext(path)))
	}
	return nil
}

// Process runs the full pipeline synchronously and returns a completed
// Document, or a typed processing error.  No partial Document is ever
// returned.
func (p *Processor) Process(ctx context.Context, path string, opts ProcessOptions) (*document.Document, error) {
	start := time.Now()
	doc, err := p.process(ctx, path, opts)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		p.logger.Error("image.process.failed", "path", path, "error", err.Error())
		return nil, err
	}
	atomic.AddInt64(&p.processedCount, 1)
	if p.metrics != nil {
		p.metrics.RecordProcessed()
	}
	p.logger.Info("image.process.completed",
		"path", path,
		"document_id", doc.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// ProcessAsync offloads the blocking pipeline to the worker pool and returns
// a channel delivering the eventual Result.  The caller's own flow continues
// unblocked until it reads the channel.  In-flight work cannot be cancelled
// once submitted; abandoning the channel only discards the result.
func (p *Processor) ProcessAsync(ctx context.Context, path string, opts ProcessOptions) (<-chan Result, error) {
	resultCh := make(chan Result, 1)
	job := Job{Ctx: ctx, Path: path, Options: opts, ResultCh: resultCh}
	select {
	case p.jobQueue <- job:
		return resultCh, nil
	default:
		return nil, apperrors.New(apperrors.CategoryInternal, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// ProcessedCount returns the total number of successfully processed images.
func (p *Processor) ProcessedCount() int64 { return atomic.LoadInt64(&p.processedCount) }

// ErrorCount returns the total number of processing errors.
func (p *Processor) ErrorCount() int64 { return atomic.LoadInt64(&p.errorCount) }

func (p *Processor) process(ctx context.Context, path string, opts ProcessOptions) (*document.Document, error) {
	outputFormat, err := p.resolveOutputFormat(opts.OutputFormat)
	if err != nil {
		return nil, err
	}

	if err := p.stage(ctx, StageValidate, path, func() error {
		return p.Validate(path)
	}); err != nil {
		return nil, err
	}

	if err := p.cfg.EnsureDirectories(opts.Workspace); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "workspace.ensure", path, err)
	}

	var (
		original   decodedImage
		normalized decodedImage
	)
	if err := p.stage(ctx, StageDecode, path, func() error {
		img, formatName, err := DecodeFile(path)
		if err != nil {
			return err
		}
		original = decodedImage{img: img, format: formatName}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.stage(ctx, StageNormalize, path, func() (stageErr error) {
		defer func() {
			if r := recover(); r != nil {
				stageErr = apperrors.NewPath(apperrors.CategoryNormalize, "normalize", path,
					fmt.Errorf("normalization panic: %v", r))
			}
		}()
		normalized = decodedImage{
			img:    normalize.Normalize(original.img, p.cfg.MaxWidth, p.cfg.MaxHeight),
			format: original.format,
		}
		return nil
	}); err != nil {
		return nil, err
	}

	var (
		savedPath string
		fileSize  int64
	)
	if err := p.stage(ctx, StagePersist, path, func() error {
		sp, size, err := p.store.SaveImage(normalized.img, path, opts.Workspace, outputFormat)
		if err != nil {
			return err
		}
		savedPath, fileSize = sp, size
		return nil
	}); err != nil {
		return nil, err
	}

	// Thumbnail failure is non-fatal: log and proceed with an empty path.
	thumbnailPath := ""
	if p.cfg.EnableThumbnails {
		_ = p.stage(ctx, StageThumbnail, path, func() error {
			tp, err := p.store.CreateThumbnail(normalized.img, filepath.Base(savedPath), opts.Workspace)
			if err != nil {
				p.logger.Warn("image.thumbnail.failed", "path", path, "error", err.Error())
				return err
			}
			thumbnailPath = tp
			return nil
		})
	}

	// Metadata is best-effort and never fatal.
	var meta document.ImageMetadata
	_ = p.stage(ctx, StageMetadata, path, func() error {
		bounds := normalized.img.Bounds()
		meta = p.extractor.CreateImageMetadata(original.img, original.format, path, bounds.Dx(), bounds.Dy())
		return nil
	})
	meta.FileSize = fileSize

	var doc *document.Document
	if err := p.stage(ctx, StageAssemble, path, func() error {
		page, err := document.NewPage(1, savedPath, thumbnailPath, meta)
		if err != nil {
			return apperrors.Wrap(apperrors.CategoryInternal, "assemble.page", path, err)
		}
		doc, err = p.assembleDocument(page, path, opts.DocumentID)
		return err
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (p *Processor) assembleDocument(page document.Page, originalPath, documentID string) (*document.Document, error) {
	meta := map[string]string{
		"original_file": originalPath,
		"processor":     "ImageProcessor",
		"created_at":    time.Now().Format(time.RFC3339),
		"file_size":     fmt.Sprintf("%d", page.Metadata.FileSize),
		"image_format":  page.Metadata.Format,
		"dimensions":    fmt.Sprintf("%dx%d", page.Metadata.Width, page.Metadata.Height),
	}
	doc, err := document.NewDocument(
		documentID,
		filepath.Base(originalPath),
		page.ImagePath,
		[]document.Page{page},
		document.StatusCompleted,
		meta,
	)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInternal, "assemble.document", originalPath, err)
	}
	return doc, nil
}

func (p *Processor) resolveOutputFormat(requested string) (string, error) {
	format := strings.ToLower(requested)
	if format == "" {
		format = strings.ToLower(p.cfg.DefaultOutputFormat)
	}
	switch format {
	case "jpg":
		return "jpeg", nil
	case "jpeg", "webp":
		return format, nil
	default:
		return "", apperrors.New(apperrors.CategoryInput, "validate.format",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedOutputFormat, requested))
	}
}

// stage runs fn with hook and metrics observation around it.
func (p *Processor) stage(ctx context.Context, name, path string, fn func() error) error {
	for _, h := range p.hooks {
		h.BeforeStage(ctx, name, path)
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	for _, h := range p.hooks {
		h.AfterStage(ctx, name, path, elapsed, err)
	}
	if p.metrics != nil {
		p.metrics.RecordStageDuration(name, elapsed)
		if err != nil {
			p.metrics.RecordError(name)
		}
	}
	return err
}

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			doc, err := p.Process(job.Ctx, job.Path, job.Options)
			if job.ResultCh != nil {
				job.ResultCh <- Result{Document: doc, Err: err}
			}
		}
	}
}

type decodedImage struct {
	img    image.Image
	format string
}
