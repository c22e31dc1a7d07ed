// Package metadata extracts structured image metadata: dimensions, color
// mode, format, transparency, and an EXIF subset.  Extraction is
// best-effort; any failure degrades to a minimal metadata value instead of
// aborting the pipeline.
package metadata

import (
	"image"
	"strings"

	"github.com/planora/image-service/config"
	"github.com/planora/image-service/document"
)

// Extractor produces ImageMetadata values from decoded images.
type Extractor struct {
	cfg config.Config
}

// NewExtractor creates an Extractor honoring the config feature toggles.
func NewExtractor(cfg config.Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// CreateImageMetadata builds an ImageMetadata from the original decoded
// image plus the final post-normalization dimensions.  Width and height in
// the result reflect the processed size; mode, format, and transparency are
// read from the original.  FileSize is filled in by the orchestrator after
// persistence and is left zero here.
func (e *Extractor) CreateImageMetadata(img image.Image, formatName, filePath string, processedW, processedH int) document.ImageMetadata {
	if img == nil {
		return minimalMetadata()
	}

	meta := document.ImageMetadata{
		Width:           processedW,
		Height:          processedH,
		Mode:            ColorMode(img),
		Format:          normalizeFormatName(formatName),
		HasTransparency: HasTransparency(img),
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		bounds := img.Bounds()
		meta.Width = bounds.Dx()
		meta.Height = bounds.Dy()
	}

	if e.cfg.EnableEXIFExtraction {
		meta.EXIF = e.extractEXIF(filePath)
	}
	return meta
}

// ColorMode maps the decoded pixel representation onto the enumerated
// color-mode strings used by the downstream consumer.  Alpha-capable
// representations that are fully opaque report "RGB": the stdlib decoders
// return *image.RGBA for opaque truecolor PNG, BMP, and TIFF sources.
func ColorMode(img image.Image) string {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64, *image.NYCbCrA:
		if isOpaque(img) {
			return "RGB"
		}
		return "RGBA"
	case *image.Gray, *image.Gray16:
		return "grayscale"
	case *image.Alpha, *image.Alpha16:
		return "grayscale"
	case *image.Paletted:
		return "palette"
	case *image.CMYK:
		return "CMYK"
	case *image.YCbCr:
		return "RGB"
	default:
		return "RGB"
	}
}

// HasTransparency reports whether the ORIGINAL image actually carries a
// non-opaque pixel.  An alpha-capable representation alone is not enough:
// opaque truecolor sources decode to *image.RGBA too, so alpha-capable and
// palette images are scanned via their Opaque method.
func HasTransparency(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64,
		*image.Alpha, *image.Alpha16, *image.NYCbCrA, *image.Paletted:
		return !isOpaque(img)
	default:
		return false
	}
}

// isOpaque reports whether every pixel of img is fully opaque, using the
// concrete type's Opaque scan when it has one.
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return true
}

// normalizeFormatName maps the registered decoder name (as reported by
// image.Decode) onto the enumerated format strings.
func normalizeFormatName(name string) string {
	switch strings.ToLower(name) {
	case "jpeg":
		return "JPEG"
	case "png":
		return "PNG"
	case "webp":
		return "WEBP"
	case "bmp":
		return "BMP"
	case "tiff":
		return "TIFF"
	default:
		return "Unknown"
	}
}

func minimalMetadata() document.ImageMetadata {
	return document.ImageMetadata{Mode: "Unknown", Format: "Unknown"}
}
