package features

import "github.com/hyperjump/miru/internal/imaging"

const (
	binaryDim   = 32  // descriptor bytes, one float component per byte
	binaryTests = 256 // pairwise intensity comparisons, 8 per byte
	binaryRange = 15  // comparison points stay within ±binaryRange of the center
)

// binaryPattern holds the fixed (x1, y1, x2, y2) sampling pairs shared by all
// keypoints. Generated once from a deterministic sequence so descriptors are
// reproducible across runs and platforms.
var binaryPattern = makeBinaryPattern()

func makeBinaryPattern() [binaryTests][4]int {
	var pattern [binaryTests][4]int
	// xorshift32 with a fixed seed; only the low bits are used.
	state := uint32(0x9E3779B9)
	next := func() int {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		return int(state%(2*binaryRange+1)) - binaryRange
	}
	for i := range pattern {
		pattern[i] = [4]int{next(), next(), next(), next()}
	}
	return pattern
}

// BinaryExtractor computes 32-dim descriptors from 256 fixed pairwise
// intensity comparisons around each corner, packed to bytes and cast to
// float32 so they share the index's numeric descriptor contract.
type BinaryExtractor struct{}

// NewBinaryExtractor creates the binary ("type B") extractor.
func NewBinaryExtractor() *BinaryExtractor {
	return &BinaryExtractor{}
}

// Name returns the feature type name.
func (e *BinaryExtractor) Name() string { return "binary" }

// Dim returns the descriptor dimension.
func (e *BinaryExtractor) Dim() int { return binaryDim }

// Detect finds corners and computes one descriptor per corner.
func (e *BinaryExtractor) Detect(img *imaging.Image) ([]Keypoint, [][]float32) {
	kps := detectCorners(img)
	if len(kps) == 0 {
		return nil, nil
	}
	descs := make([][]float32, len(kps))
	for i, kp := range kps {
		descs[i] = binaryDescriptor(img, int(kp.X), int(kp.Y))
	}
	return kps, descs
}

// binaryDescriptor packs the comparison bits for the patch centered at
// (cx, cy). The detector's border margin covers the sampling range.
func binaryDescriptor(img *imaging.Image, cx, cy int) []float32 {
	desc := make([]float32, binaryDim)
	for i, p := range binaryPattern {
		a := img.GrayAt(cx+p[0], cy+p[1])
		b := img.GrayAt(cx+p[2], cy+p[3])
		if a < b {
			desc[i/8] += float32(uint8(1) << (i % 8))
		}
	}
	return desc
}
