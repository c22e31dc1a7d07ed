package storage

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/planora/image-service/config"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ThumbnailSize = 64
	return cfg
}

func writeSourceFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
	f.Close()
	return path
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 120, G: 130, B: 140, A: 255})
		}
	}
	return img
}

func TestGenerateFilenameDeterministic(t *testing.T) {
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "source.jpg")
	store := NewStore(testConfig())

	first := store.GenerateFilename(src, "webp")
	second := store.GenerateFilename(src, "webp")
	if first != second {
		t.Errorf("unchanged source must yield the same name: %s vs %s", first, second)
	}
	if !strings.HasPrefix(first, "img_") || !strings.HasSuffix(first, ".webp") {
		t.Errorf("unexpected filename shape: %s", first)
	}
	// img_ + 12 hex + .webp
	if len(first) != len("img_")+12+len(".webp") {
		t.Errorf("digest should be 12 hex chars: %s", first)
	}
}

func TestGenerateFilenameChangesWithMtime(t *testing.T) {
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "source.jpg")
	store := NewStore(testConfig())

	before := store.GenerateFilename(src, "webp")
	if err := os.Chtimes(src, time.Now(), time.Now().Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	after := store.GenerateFilename(src, "webp")
	if before == after {
		t.Error("modified source must yield a different name")
	}
}

func TestGenerateFilenameExtension(t *testing.T) {
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "source.jpg")
	store := NewStore(testConfig())

	if name := store.GenerateFilename(src, "jpeg"); !strings.HasSuffix(name, ".jpg") {
		t.Errorf("jpeg format should map to .jpg, got %s", name)
	}
	if name := store.GenerateFilename(src, "JPG"); !strings.HasSuffix(name, ".jpg") {
		t.Errorf("jpg format should map to .jpg, got %s", name)
	}
	if name := store.GenerateFilename(src, "webp"); !strings.HasSuffix(name, ".webp") {
		t.Errorf("webp format should keep .webp, got %s", name)
	}
}

func TestThumbnailFilename(t *testing.T) {
	if got := ThumbnailFilename("img_abc123def456.webp"); got != "thumb_img_abc123def456.jpg" {
		t.Errorf("ThumbnailFilename: got %s", got)
	}
	if got := ThumbnailFilename("img_abc123def456.jpg"); got != "thumb_img_abc123def456.jpg" {
		t.Errorf("ThumbnailFilename: got %s", got)
	}
}

func TestSaveImageJPEG(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	src := writeSourceFile(t, dir, "source.jpg")
	store := NewStore(testConfig())

	path, size, err := store.SaveImage(solidImage(40, 30), src, ws, "jpeg")
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if size <= 0 {
		t.Errorf("file size must be positive, got %d", size)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if info.Size() != size {
		t.Errorf("reported size %d != actual %d", size, info.Size())
	}
	if !filepath.IsAbs(path) {
		t.Errorf("saved path should be absolute: %s", path)
	}

	// The artifact must decode as a real JPEG.
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode saved jpeg: %v", err)
	}
	if decoded.Bounds().Dx() != 40 || decoded.Bounds().Dy() != 30 {
		t.Errorf("saved dimensions: got %dx%d", decoded.Bounds().Dx(), decoded.Bounds().Dy())
	}
}

func TestSaveImageUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	src := writeSourceFile(t, dir, "source.jpg")
	store := NewStore(testConfig())

	if _, _, err := store.SaveImage(solidImage(4, 4), src, t.TempDir(), "gif"); err == nil {
		t.Error("expected error for unsupported output format")
	}
}

func TestCreateThumbnailBoundingBox(t *testing.T) {
	ws := t.TempDir()
	store := NewStore(testConfig())

	path, err := store.CreateThumbnail(solidImage(400, 100), "img_abcdef.webp", ws)
	if err != nil {
		t.Fatalf("CreateThumbnail: %v", err)
	}
	if filepath.Base(path) != "thumb_img_abcdef.jpg" {
		t.Errorf("thumbnail name: got %s", filepath.Base(path))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	thumb, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	w, h := thumb.Bounds().Dx(), thumb.Bounds().Dy()
	if w > 64 || h > 64 {
		t.Errorf("thumbnail %dx%d exceeds 64px bounding box", w, h)
	}
	// 4:1 source fit in a 64px box → 64x16.
	if w != 64 || h != 16 {
		t.Errorf("thumbnail %dx%d, want 64x16", w, h)
	}
}

func TestCreateThumbnailBlockedDirectory(t *testing.T) {
	ws := t.TempDir()
	cfg := testConfig()
	store := NewStore(cfg)

	// Squat a regular file where the thumbnail directory should go.
	if err := os.MkdirAll(cfg.ImageStorePath(ws), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cfg.ThumbnailPath(ws), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := store.CreateThumbnail(solidImage(10, 10), "img_x.webp", ws); err == nil {
		t.Error("expected error when thumbnail directory is blocked")
	}
}

func TestCopyOriginalFile(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	src := writeSourceFile(t, dir, "upload.jpg")
	store := NewStore(testConfig())

	mtime := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	dest, err := store.CopyOriginalFile(src, ws)
	if err != nil {
		t.Fatalf("CopyOriginalFile: %v", err)
	}
	if filepath.Base(dest) != "original_upload.jpg" {
		t.Errorf("backup name: got %s, want original_upload.jpg", filepath.Base(dest))
	}
	if !filepath.IsAbs(dest) {
		t.Errorf("backup path should be absolute: %s", dest)
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		t.Fatal(err)
	}
	destInfo, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if destInfo.Size() != srcInfo.Size() {
		t.Errorf("backup size %d != source %d", destInfo.Size(), srcInfo.Size())
	}
	if !destInfo.ModTime().Equal(mtime) {
		t.Errorf("backup mtime %v, want %v", destInfo.ModTime(), mtime)
	}
}

func TestCopyOriginalFileMissingSource(t *testing.T) {
	store := NewStore(testConfig())
	if _, err := store.CopyOriginalFile("/no/such/upload.jpg", t.TempDir()); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestStorageInfo(t *testing.T) {
	dir := t.TempDir()
	ws := t.TempDir()
	src := writeSourceFile(t, dir, "source.jpg")
	store := NewStore(testConfig())

	if _, _, err := store.SaveImage(solidImage(8, 8), src, ws, "jpeg"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateThumbnail(solidImage(8, 8), "img_x.jpg", ws); err != nil {
		t.Fatal(err)
	}

	info := store.StorageInfo(ws)
	if info.ImageCount != 1 {
		t.Errorf("ImageCount: got %d, want 1", info.ImageCount)
	}
	if info.ThumbnailCount != 1 {
		t.Errorf("ThumbnailCount: got %d, want 1", info.ThumbnailCount)
	}
}

func TestCleanupTempFiles(t *testing.T) {
	dir := t.TempDir()
	keep := filepath.Join(dir, "keep.txt")
	gone := filepath.Join(dir, "gone.txt")
	for _, p := range []string{keep, gone} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store := NewStore(testConfig())
	store.CleanupTempFiles([]string{gone, "", "/does/not/exist"})

	if _, err := os.Stat(gone); !os.IsNotExist(err) {
		t.Error("gone.txt should have been removed")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("keep.txt should remain")
	}
}
