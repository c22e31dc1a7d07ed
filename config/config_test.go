package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.MaxWidth != 2048 || cfg.MaxHeight != 2048 {
		t.Errorf("max dimensions: got %dx%d, want 2048x2048", cfg.MaxWidth, cfg.MaxHeight)
	}
	if cfg.JPEGQuality != 85 {
		t.Errorf("JPEGQuality: got %d, want 85", cfg.JPEGQuality)
	}
	if cfg.WebPQuality != 80 {
		t.Errorf("WebPQuality: got %d, want 80", cfg.WebPQuality)
	}
	if cfg.ThumbnailSize != 200 {
		t.Errorf("ThumbnailSize: got %d, want 200", cfg.ThumbnailSize)
	}
	if cfg.DefaultOutputFormat != "webp" {
		t.Errorf("DefaultOutputFormat: got %s, want webp", cfg.DefaultOutputFormat)
	}
	if !cfg.EnableThumbnails || !cfg.EnableEXIFExtraction {
		t.Error("thumbnails and EXIF extraction should default to enabled")
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("WorkerCount: got %d, want 4", cfg.WorkerCount)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(Default()): %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("IMAGE_SERVICE_MAX_WIDTH", "1024")
	t.Setenv("IMAGE_SERVICE_JPEG_QUALITY", "70")
	t.Setenv("IMAGE_SERVICE_ENABLE_THUMBNAILS", "false")
	t.Setenv("IMAGE_SERVICE_DEFAULT_OUTPUT_FORMAT", "jpeg")
	t.Setenv("IMAGE_SERVICE_WORKER_COUNT", "not-a-number")

	cfg := FromEnv()
	if cfg.MaxWidth != 1024 {
		t.Errorf("MaxWidth: got %d, want 1024", cfg.MaxWidth)
	}
	if cfg.MaxHeight != 2048 {
		t.Errorf("MaxHeight should keep default, got %d", cfg.MaxHeight)
	}
	if cfg.JPEGQuality != 70 {
		t.Errorf("JPEGQuality: got %d, want 70", cfg.JPEGQuality)
	}
	if cfg.EnableThumbnails {
		t.Error("EnableThumbnails should be false")
	}
	if cfg.DefaultOutputFormat != "jpeg" {
		t.Errorf("DefaultOutputFormat: got %s, want jpeg", cfg.DefaultOutputFormat)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("malformed WORKER_COUNT should keep default, got %d", cfg.WorkerCount)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max width", func(c *Config) { c.MaxWidth = 0 }},
		{"jpeg quality too high", func(c *Config) { c.JPEGQuality = 101 }},
		{"webp quality zero", func(c *Config) { c.WebPQuality = 0 }},
		{"negative thumbnail", func(c *Config) { c.ThumbnailSize = -1 }},
		{"no extensions", func(c *Config) { c.SupportedExtensions = nil }},
		{"bad output format", func(c *Config) { c.DefaultOutputFormat = "gif" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestPathDerivation(t *testing.T) {
	cfg := Default()
	cfg.WorkspaceBase = "base_ws"
	cfg.ImageStoreDir = "image_store"
	cfg.ThumbnailSubdir = "thumbnails"

	if got := cfg.WorkspacePath(""); got != "base_ws" {
		t.Errorf("WorkspacePath(\"\"): got %s", got)
	}
	if got := cfg.WorkspacePath("/tmp/other"); got != "/tmp/other" {
		t.Errorf("WorkspacePath override: got %s", got)
	}
	want := filepath.Join("base_ws", "image_store")
	if got := cfg.ImageStorePath(""); got != want {
		t.Errorf("ImageStorePath: got %s, want %s", got, want)
	}
	want = filepath.Join("base_ws", "image_store", "thumbnails")
	if got := cfg.ThumbnailPath(""); got != want {
		t.Errorf("ThumbnailPath: got %s, want %s", got, want)
	}
}

func TestEnsureDirectoriesIdempotent(t *testing.T) {
	cfg := Default()
	ws := t.TempDir()

	for i := 0; i < 2; i++ {
		if err := cfg.EnsureDirectories(ws); err != nil {
			t.Fatalf("EnsureDirectories (run %d): %v", i+1, err)
		}
	}
	info, err := os.Stat(cfg.ImageStorePath(ws))
	if err != nil || !info.IsDir() {
		t.Fatalf("image store not created: %v", err)
	}
}

func TestIsSupportedFormat(t *testing.T) {
	cfg := Default()

	supported := []string{"a.jpg", "b.JPEG", "c.Png", "d.webp", "e.BMP", "f.tiff", "g.TIF"}
	for _, name := range supported {
		if !cfg.IsSupportedFormat(name) {
			t.Errorf("IsSupportedFormat(%q) = false, want true", name)
		}
	}
	unsupported := []string{"a.gif", "b.pdf", "c.txt", "noext", "d.jpg.exe"}
	for _, name := range unsupported {
		if cfg.IsSupportedFormat(name) {
			t.Errorf("IsSupportedFormat(%q) = true, want false", name)
		}
	}
}
