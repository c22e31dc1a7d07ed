// Package storage persists normalized images and thumbnails under the
// configured workspace layout and computes their deterministic artifact
// names.
package storage

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"github.com/planora/image-service/config"
	apperrors "github.com/planora/image-service/errors"
	"github.com/planora/image-service/normalize"
)

// thumbnailQuality is the fixed JPEG quality used for all thumbnails.
const thumbnailQuality = 85

// Store writes image artifacts to the filesystem.
type Store struct {
	cfg config.Config
}

// NewStore creates a Store using the given configuration for paths and
// quality levels.
func NewStore(cfg config.Config) *Store {
	return &Store{cfg: cfg}
}

// GenerateFilename computes the deterministic artifact name for the given
// source file: img_<12 hex> derived from md5(path + "_" + mtime).  The name
// is stable across repeated runs on an unchanged source and changes when the
// source is modified or moved.  This is a weak content-address: it hashes
// the path and modification time, not pixel data.
func (s *Store) GenerateFilename(originalPath, format string) string {
	mtime := ""
	if info, err := os.Stat(originalPath); err == nil {
		mtime = fmt.Sprintf("%d", info.ModTime().UnixNano())
	}
	sum := md5.Sum([]byte(originalPath + "_" + mtime))
	digest := hex.EncodeToString(sum[:])[:12]
	return fmt.Sprintf("img_%s.%s", digest, formatExtension(format))
}

// ThumbnailFilename derives the thumbnail name from the main artifact's
// filename: thumb_<stem>.jpg.
func ThumbnailFilename(imageFilename string) string {
	stem := strings.TrimSuffix(imageFilename, filepath.Ext(imageFilename))
	return "thumb_" + stem + ".jpg"
}

// SaveImage persists the normalized image into the image store using the
// format-specific quality settings and returns the absolute saved path and
// the resulting file's byte size, measured after the write completes.
func (s *Store) SaveImage(img image.Image, originalPath, workspace, format string) (string, int64, error) {
	if err := s.cfg.EnsureDirectories(workspace); err != nil {
		return "", 0, apperrors.Wrap(apperrors.CategoryStorage, "storage.save.mkdir", originalPath, err)
	}

	filename := s.GenerateFilename(originalPath, format)
	savePath := filepath.Join(s.cfg.ImageStorePath(workspace), filename)

	if err := s.writeImage(savePath, img, format); err != nil {
		return "", 0, apperrors.Wrap(apperrors.CategoryStorage, "storage.save", originalPath, err)
	}

	info, err := os.Stat(savePath)
	if err != nil {
		return "", 0, apperrors.Wrap(apperrors.CategoryStorage, "storage.save.stat", savePath, err)
	}
	abs, err := filepath.Abs(savePath)
	if err != nil {
		abs = savePath
	}
	return abs, info.Size(), nil
}

// CreateThumbnail downsamples a copy of the normalized image to fit within
// the configured square bounding box, flattens any remaining transparency
// (thumbnails are always JPEG), and writes it under the thumbnails
// subdirectory.  The returned error is non-fatal to the pipeline: callers
// log it and proceed with an empty thumbnail path.
func (s *Store) CreateThumbnail(img image.Image, imageFilename, workspace string) (string, error) {
	dir := s.cfg.ThumbnailPath(workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.thumbnail.mkdir", dir, err)
	}

	thumb := imaging.Fit(img, s.cfg.ThumbnailSize, s.cfg.ThumbnailSize, imaging.Lanczos)
	flattened := normalize.FlattenOnWhite(thumb)

	savePath := filepath.Join(dir, ThumbnailFilename(imageFilename))
	f, err := os.OpenFile(savePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.thumbnail.open", savePath, err)
	}
	defer f.Close()

	if err := jpeg.Encode(f, flattened, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.thumbnail.encode", savePath, err)
	}

	abs, err := filepath.Abs(savePath)
	if err != nil {
		abs = savePath
	}
	return abs, nil
}

// CopyOriginalFile copies the source file into the image store as an
// optional backup named original_<basename>, preserving the source's
// modification time, and returns the absolute destination path.
func (s *Store) CopyOriginalFile(sourcePath, workspace string) (string, error) {
	if err := s.cfg.EnsureDirectories(workspace); err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.copy.mkdir", sourcePath, err)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.copy.open", sourcePath, err)
	}
	defer src.Close()

	destPath := filepath.Join(s.cfg.ImageStorePath(workspace), "original_"+filepath.Base(sourcePath))
	dst, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.copy.create", destPath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.copy", destPath, err)
	}
	if err := dst.Close(); err != nil {
		return "", apperrors.Wrap(apperrors.CategoryStorage, "storage.copy.close", destPath, err)
	}

	if info, err := os.Stat(sourcePath); err == nil {
		_ = os.Chtimes(destPath, info.ModTime(), info.ModTime())
	}

	abs, err := filepath.Abs(destPath)
	if err != nil {
		abs = destPath
	}
	return abs, nil
}

// Info reports the current state of the store layout for a workspace.
type Info struct {
	ImageStorePath string
	ThumbnailPath  string
	ImageCount     int
	ThumbnailCount int
}

// StorageInfo counts persisted artifacts under the workspace.
func (s *Store) StorageInfo(workspace string) Info {
	info := Info{
		ImageStorePath: s.cfg.ImageStorePath(workspace),
		ThumbnailPath:  s.cfg.ThumbnailPath(workspace),
	}
	info.ImageCount = countPrefixed(info.ImageStorePath, "img_")
	info.ThumbnailCount = countPrefixed(info.ThumbnailPath, "thumb_")
	return info
}

// CleanupTempFiles removes transport-owned temporary upload artifacts.
// Missing paths are ignored.
func (s *Store) CleanupTempFiles(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		_ = os.RemoveAll(p)
	}
}

func (s *Store) writeImage(path string, img image.Image, format string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.encode(f, img, format)
}

func (s *Store) encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(format) {
	case "jpeg", "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: s.cfg.JPEGQuality})
	case "webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(s.cfg.WebPQuality)})
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrUnsupportedOutputFormat, format)
	}
}

// formatExtension maps the requested output format onto the artifact file
// extension: "jpg" when the format is jpeg, else the format lowercased.
func formatExtension(format string) string {
	lower := strings.ToLower(format)
	if lower == "jpeg" || lower == "jpg" {
		return "jpg"
	}
	return lower
}

func countPrefixed(dir, prefix string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			n++
		}
	}
	return n
}
