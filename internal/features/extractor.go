// Package features provides local feature detection and per-keypoint
// descriptors. Two extractors are available: "gradient" (128-dim,
// float-native orientation histograms) and "binary" (32-dim, binary
// intensity comparisons cast to float). Both share the same corner detector.
package features

import (
	"fmt"

	"github.com/hyperjump/miru/internal/imaging"
)

// Keypoint is a detected corner at continuous image coordinates.
type Keypoint struct {
	X     float32
	Y     float32
	Score float32
}

// Extractor detects keypoints in a grayscale image and computes one
// fixed-dimension descriptor per keypoint. Implementations must return one
// descriptor row per keypoint, each of length Dim(). An image with no
// detectable features yields empty slices, not an error.
type Extractor interface {
	Name() string
	Dim() int
	Detect(img *imaging.Image) ([]Keypoint, [][]float32)
}

// maxKeypoints caps detection per image, strongest corners first.
const maxKeypoints = 1000

// New returns the extractor for the given feature type name.
func New(name string) (Extractor, error) {
	switch name {
	case "gradient":
		return NewGradientExtractor(), nil
	case "binary":
		return NewBinaryExtractor(), nil
	default:
		return nil, fmt.Errorf("unknown feature type %q", name)
	}
}
