package features

import "github.com/hyperjump/miru/internal/imaging"

// MockExtractor returns a fixed keypoint/descriptor set regardless of input.
// Used in tests to pin descriptor-builder inputs without real detection.
type MockExtractor struct {
	dim       int
	keypoints []Keypoint
	descs     [][]float32
}

// NewMockExtractor creates a mock extractor with the given dimension and
// canned detection output. keypoints and descs must have equal length.
func NewMockExtractor(dim int, keypoints []Keypoint, descs [][]float32) *MockExtractor {
	return &MockExtractor{dim: dim, keypoints: keypoints, descs: descs}
}

// Name returns the feature type name.
func (e *MockExtractor) Name() string { return "mock" }

// Dim returns the descriptor dimension.
func (e *MockExtractor) Dim() int { return e.dim }

// Detect returns the canned keypoints and descriptors.
func (e *MockExtractor) Detect(_ *imaging.Image) ([]Keypoint, [][]float32) {
	return e.keypoints, e.descs
}
