// Package normalize implements the mode-flattening and bounded-resize
// transform applied to every decoded image before persistence.
package normalize

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// background is the opaque fill composited behind transparent pixels.
// Downstream consumers and lossy encodings cannot represent transparency.
var background = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// FlattenOnWhite converts img to an opaque three-channel representation.
// Alpha-bearing and palette images are composited onto a white background
// via their alpha channel; everything else is redrawn directly.
func FlattenOnWhite(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	// Over-compositing uses the source alpha as the mask; a palette entry
	// with a transparency key participates through its color's alpha.
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Over)
	return dst
}

// NeedsFlatten reports whether img carries an alpha channel, is in a palette
// mode, or is otherwise not already three-channel color.
func NeedsFlatten(img image.Image) bool {
	switch img.(type) {
	case *image.YCbCr:
		return false
	default:
		return true
	}
}

// BoundedSize computes the output dimensions for an image of w×h constrained
// to maxW×maxH: the uniform ratio min(maxW/w, maxH/h) applied to both axes
// and rounded to nearest.  Images already within bounds keep their native
// size; this transform never upscales.
func BoundedSize(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := math.Min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	outW := int(math.Round(float64(w) * ratio))
	outH := int(math.Round(float64(h) * ratio))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH
}

// Downscale resamples img to fit within maxW×maxH preserving aspect ratio,
// using a high-quality filter.  Images within bounds are returned unchanged.
func Downscale(img image.Image, maxW, maxH int) image.Image {
	bounds := img.Bounds()
	outW, outH := BoundedSize(bounds.Dx(), bounds.Dy(), maxW, maxH)
	if outW == bounds.Dx() && outH == bounds.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// Normalize applies the full transform: flatten transparency and palette
// modes onto white, then downscale to the configured bounds.
func Normalize(img image.Image, maxW, maxH int) image.Image {
	out := img
	if NeedsFlatten(out) {
		out = FlattenOnWhite(out)
	}
	return Downscale(out, maxW, maxH)
}
