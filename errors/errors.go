// Package errors defines the typed processing errors used throughout the
// image service.  Every failure in the pipeline is classified into a
// Category and carries the offending file path where one applies, so
// external collaborators (API, CLI) can map failures onto their own surface
// without losing context.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryInput     Category = "input"
	CategoryDecode    Category = "decode"
	CategoryNormalize Category = "normalize"
	CategoryStorage   Category = "storage"
	CategoryMetadata  Category = "metadata"
	CategoryInternal  Category = "internal"
)

// ProcessingError is the structured error type used throughout the module.
type ProcessingError struct {
	Category Category
	Op       string // operation name
	Path     string // offending file path, empty when not applicable
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s %s: %v", e.Category, e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// New creates a ProcessingError without path context.
func New(category Category, op string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Err: err}
}

// NewPath creates a ProcessingError carrying the offending file path.
func NewPath(category Category, op, path string, err error) *ProcessingError {
	return &ProcessingError{Category: category, Op: op, Path: path, Err: err}
}

// Wrap wraps an existing error with category and path context.  Returns nil
// when err is nil.
func Wrap(category Category, op, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewPath(category, op, path, err)
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Category == cat
	}
	return false
}

// PathOf returns the file path carried by err, or "" when err is not a
// ProcessingError or carries no path.
func PathOf(err error) string {
	var pe *ProcessingError
	if errors.As(err, &pe) {
		return pe.Path
	}
	return ""
}

// Sentinel errors for the validation and decode failure modes.
var (
	ErrEmptyPath               = errors.New("file path is required")
	ErrFileNotFound            = errors.New("file not found")
	ErrNotAFile                = errors.New("path is not a regular file")
	ErrEmptyFile               = errors.New("file is empty")
	ErrUnsupportedExtension    = errors.New("unsupported file extension")
	ErrUnsupportedOutputFormat = errors.New("unsupported output format")
	ErrUnrecognizedFormat      = errors.New("unrecognized image data")
	ErrWorkerPoolFull          = errors.New("worker pool queue full")
	ErrProcessorStopped        = errors.New("processor stopped")
)
