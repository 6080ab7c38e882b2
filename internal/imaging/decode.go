// Package imaging provides image decoding, color-space planes, and the grid
// partitioner used as the coarse region layout for descriptors.
package imaging

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
)

// Image holds the per-pixel planes the descriptor pipeline reads: 8-bit luma
// and 8-bit Lab channels, row-major.
type Image struct {
	Width  int
	Height int
	Gray   []uint8
	L      []uint8
	A      []uint8
	B      []uint8
}

// DecodeFile reads and decodes the image at path (JPEG, PNG, or BMP) and
// converts it to the plane representation.
func DecodeFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(src)
}

// ReadImage decodes the image at path without plane conversion. Used when an
// image only needs to be re-encoded (e.g. top-K match copies).
func ReadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return src, nil
}

// FromImage converts a decoded image into luma and Lab planes.
// Returns an error for images with zero width or height.
func FromImage(src image.Image) (*Image, error) {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("empty image: %dx%d", w, h)
	}

	img := &Image{
		Width:  w,
		Height: h,
		Gray:   make([]uint8, w*h),
		L:      make([]uint8, w*h),
		A:      make([]uint8, w*h),
		B:      make([]uint8, w*h),
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r16, g16, b16, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			r := uint8(r16 >> 8)
			g := uint8(g16 >> 8)
			b := uint8(b16 >> 8)
			i := y*w + x
			img.Gray[i] = luma(r, g, b)
			img.L[i], img.A[i], img.B[i] = labFromRGB(r, g, b)
		}
	}
	return img, nil
}

// GrayAt returns the luma value at (x, y). Bounds are the caller's responsibility.
func (im *Image) GrayAt(x, y int) uint8 {
	return im.Gray[y*im.Width+x]
}

// luma computes the BT.601 weighted gray value.
func luma(r, g, b uint8) uint8 {
	y := 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
	return uint8(y + 0.5)
}
