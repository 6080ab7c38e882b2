package features

import (
	"math"

	"github.com/hyperjump/miru/internal/imaging"
)

const (
	gradientDim     = 128
	gradientPatch   = 16 // patch edge in pixels
	gradientCells   = 4  // spatial cells per patch edge
	gradientBins    = 8  // orientation bins per cell
	gradientCellPix = gradientPatch / gradientCells
)

// GradientExtractor computes 128-dim orientation-histogram descriptors: a
// 16x16 patch around each corner split into 4x4 cells with 8 orientation
// bins each, magnitude-weighted. Float-native, no binarization.
type GradientExtractor struct{}

// NewGradientExtractor creates the gradient ("type A") extractor.
func NewGradientExtractor() *GradientExtractor {
	return &GradientExtractor{}
}

// Name returns the feature type name.
func (e *GradientExtractor) Name() string { return "gradient" }

// Dim returns the descriptor dimension.
func (e *GradientExtractor) Dim() int { return gradientDim }

// Detect finds corners and computes one descriptor per corner.
func (e *GradientExtractor) Detect(img *imaging.Image) ([]Keypoint, [][]float32) {
	kps := detectCorners(img)
	if len(kps) == 0 {
		return nil, nil
	}
	descs := make([][]float32, len(kps))
	for i, kp := range kps {
		descs[i] = gradientDescriptor(img, int(kp.X), int(kp.Y))
	}
	return kps, descs
}

// gradientDescriptor builds the histogram for the patch centered at (cx, cy).
// The detector guarantees the patch and the central-difference neighborhood
// stay inside the image.
func gradientDescriptor(img *imaging.Image, cx, cy int) []float32 {
	desc := make([]float32, gradientDim)
	x0 := cx - gradientPatch/2
	y0 := cy - gradientPatch/2

	for py := 0; py < gradientPatch; py++ {
		for px := 0; px < gradientPatch; px++ {
			x := x0 + px
			y := y0 + py
			dx := float64(img.GrayAt(x+1, y)) - float64(img.GrayAt(x-1, y))
			dy := float64(img.GrayAt(x, y+1)) - float64(img.GrayAt(x, y-1))
			mag := math.Sqrt(dx*dx + dy*dy)
			if mag == 0 {
				continue
			}
			theta := math.Atan2(dy, dx) // [-pi, pi]
			bin := int((theta + math.Pi) / (2 * math.Pi) * gradientBins)
			if bin >= gradientBins {
				bin = gradientBins - 1
			}
			cell := (py/gradientCellPix)*gradientCells + px/gradientCellPix
			desc[cell*gradientBins+bin] += float32(mag)
		}
	}
	return desc
}
