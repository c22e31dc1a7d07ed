// Package config holds the image-service configuration: processing bounds,
// quality levels, feature toggles, and the output directory layout.  A
// Config value is constructed once at process start (Default or FromEnv)
// and passed explicitly into every component that needs it.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// envPrefix is prepended to every environment variable read by FromEnv.
const envPrefix = "IMAGE_SERVICE_"

// Config is the top-level configuration struct.  All fields have safe
// defaults so callers can start with Default() and override only what they
// need.
type Config struct {
	// Image processing bounds.
	MaxWidth  int // default 2048
	MaxHeight int // default 2048

	// Encode quality (1-100).
	JPEGQuality int // default 85
	WebPQuality int // default 80

	// Thumbnail bounding box in pixels.
	ThumbnailSize int // default 200

	// Supported input extensions, lower-case with leading dot.
	SupportedExtensions []string

	// Storage layout.
	WorkspaceBase   string // default "workspace"
	ImageStoreDir   string // subdirectory under the workspace
	ThumbnailSubdir string // subdirectory under the image store

	// Feature toggles.
	EnableThumbnails     bool
	EnableEXIFExtraction bool

	// Default output format when a request does not specify one.
	DefaultOutputFormat string // "webp" or "jpeg"

	// Worker pool controls for the async entry point.
	WorkerCount int // default 4
	QueueSize   int // max queued jobs before backpressure; default 64

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// Default returns a Config populated with the production defaults.
func Default() Config {
	return Config{
		MaxWidth:             2048,
		MaxHeight:            2048,
		JPEGQuality:          85,
		WebPQuality:          80,
		ThumbnailSize:        200,
		SupportedExtensions:  []string{".jpg", ".jpeg", ".png", ".webp", ".bmp", ".tiff", ".tif"},
		WorkspaceBase:        "workspace",
		ImageStoreDir:        "image_store",
		ThumbnailSubdir:      "thumbnails",
		EnableThumbnails:     true,
		EnableEXIFExtraction: true,
		DefaultOutputFormat:  "webp",
		WorkerCount:          4,
		QueueSize:            64,
		LogLevel:             "info",
	}
}

// FromEnv returns Default() overridden by IMAGE_SERVICE_* environment
// variables.  Unset or malformed variables keep their defaults.
func FromEnv() Config {
	c := Default()
	c.MaxWidth = envInt("MAX_WIDTH", c.MaxWidth)
	c.MaxHeight = envInt("MAX_HEIGHT", c.MaxHeight)
	c.JPEGQuality = envInt("JPEG_QUALITY", c.JPEGQuality)
	c.WebPQuality = envInt("WEBP_QUALITY", c.WebPQuality)
	c.ThumbnailSize = envInt("THUMBNAIL_SIZE", c.ThumbnailSize)
	c.WorkspaceBase = envStr("WORKSPACE_BASE", c.WorkspaceBase)
	c.ImageStoreDir = envStr("IMAGE_STORE_DIR", c.ImageStoreDir)
	c.ThumbnailSubdir = envStr("THUMBNAIL_SUBDIR", c.ThumbnailSubdir)
	c.EnableThumbnails = envBool("ENABLE_THUMBNAILS", c.EnableThumbnails)
	c.EnableEXIFExtraction = envBool("ENABLE_EXIF_EXTRACTION", c.EnableEXIFExtraction)
	c.DefaultOutputFormat = envStr("DEFAULT_OUTPUT_FORMAT", c.DefaultOutputFormat)
	c.WorkerCount = envInt("WORKER_COUNT", c.WorkerCount)
	c.QueueSize = envInt("QUEUE_SIZE", c.QueueSize)
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	return c
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return errors.New("config: MaxWidth and MaxHeight must be positive")
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return errors.New("config: JPEGQuality must be between 1 and 100")
	}
	if c.WebPQuality < 1 || c.WebPQuality > 100 {
		return errors.New("config: WebPQuality must be between 1 and 100")
	}
	if c.ThumbnailSize <= 0 {
		return errors.New("config: ThumbnailSize must be positive")
	}
	if len(c.SupportedExtensions) == 0 {
		return errors.New("config: SupportedExtensions must not be empty")
	}
	switch strings.ToLower(c.DefaultOutputFormat) {
	case "webp", "jpeg", "jpg":
	default:
		return errors.New("config: DefaultOutputFormat must be webp or jpeg")
	}
	return nil
}

// WorkspacePath returns workspace when non-empty, otherwise the configured
// base workspace directory.
func (c Config) WorkspacePath(workspace string) string {
	if workspace != "" {
		return workspace
	}
	return c.WorkspaceBase
}

// ImageStorePath returns the image store directory under the workspace.
func (c Config) ImageStorePath(workspace string) string {
	return filepath.Join(c.WorkspacePath(workspace), c.ImageStoreDir)
}

// ThumbnailPath returns the thumbnail directory under the image store.
func (c Config) ThumbnailPath(workspace string) string {
	return filepath.Join(c.ImageStorePath(workspace), c.ThumbnailSubdir)
}

// EnsureDirectories creates the image store directory layout, parents
// included.  It is idempotent.  The thumbnail subdirectory is created on
// demand by the storage layer so a blocked thumbnail path never prevents
// main-image persistence.
func (c Config) EnsureDirectories(workspace string) error {
	return os.MkdirAll(c.ImageStorePath(workspace), 0o755)
}

// IsSupportedFormat reports whether the file's extension is in the
// configured allow-list.  Comparison is case-insensitive.
func (c Config) IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, supported := range c.SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

func envStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(envPrefix + key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
