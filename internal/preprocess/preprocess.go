// Package preprocess implements the per-frame image preparation stage
// that runs ahead of marker detection and feature extraction (spec.md
// §4.2): RGBA-to-luminance conversion, separable Gaussian blur, and
// adaptive thresholding. The teacher has no image-processing package
// of its own (its pipelines operate on point clouds, not pixels), so
// these routines are written fresh in the teacher's numeric-kernel
// style — plain slices, no hidden allocation inside hot loops — using
// golang.org/x/image for the few format conversions that benefit from
// a real image.Image rather than a flat byte slice.
package preprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Luminance is a single-channel 8-bit grayscale image stored row-major.
type Luminance struct {
	Pix           []uint8
	Width, Height int
}

func NewLuminance(width, height int) *Luminance {
	return &Luminance{Pix: make([]uint8, width*height), Width: width, Height: height}
}

func (l *Luminance) At(x, y int) uint8 { return l.Pix[y*l.Width+x] }

// Dims reports the image's (width, height), satisfying the
// grayscaleSource contract the features and markers packages each
// declare locally to avoid an upward dependency on this package.
func (l *Luminance) Dims() (int, int) { return l.Width, l.Height }

// RGBAToLuminance converts tightly packed RGBA8 pixels to grayscale
// using the ITU-R BT.601 luma coefficients, matching the fixed-point
// weights OpenCV's cvtColor uses for COLOR_RGBA2GRAY.
func RGBAToLuminance(pixels []byte, width, height int) *Luminance {
	out := NewLuminance(width, height)
	for i := 0; i < width*height; i++ {
		r := int(pixels[i*4+0])
		g := int(pixels[i*4+1])
		b := int(pixels[i*4+2])
		out.Pix[i] = uint8((r*299 + g*587 + b*114) / 1000)
	}
	return out
}

// ToImage adapts a Luminance to a standard library image.Gray, so
// downstream code that wants x/image's scaling or codec support can
// use it without another conversion pass.
func (l *Luminance) ToImage() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, l.Width, l.Height))
	copy(img.Pix, l.Pix)
	return img
}

// FromImage builds a Luminance from any image.Image, resampling
// through x/draw if the source isn't already 8-bit grayscale.
func FromImage(src image.Image) *Luminance {
	b := src.Bounds()
	gray := image.NewGray(b)
	draw.Draw(gray, b, src, b.Min, draw.Src)
	out := NewLuminance(b.Dx(), b.Dy())
	copy(out.Pix, gray.Pix)
	return out
}
