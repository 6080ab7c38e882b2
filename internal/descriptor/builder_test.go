package descriptor

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miru/internal/features"
	"github.com/hyperjump/miru/internal/imaging"
	"github.com/hyperjump/miru/pkg/utils"
)

// testImage builds a plane image directly so builder semantics can be pinned
// without running a real detector.
func testImage(w, h int, l, a, b uint8) *imaging.Image {
	n := w * h
	img := &imaging.Image{
		Width:  w,
		Height: h,
		Gray:   make([]uint8, n),
		L:      make([]uint8, n),
		A:      make([]uint8, n),
		B:      make([]uint8, n),
	}
	for i := 0; i < n; i++ {
		img.L[i] = l
		img.A[i] = a
		img.B[i] = b
	}
	return img
}

func checkUnitNorm(t *testing.T, desc []float32) {
	t.Helper()
	norm := utils.L2Norm(desc)
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("||descriptor|| = %v, want 1.0", norm)
	}
}

func TestNewBuilder_invalid(t *testing.T) {
	ex := features.NewMockExtractor(2, nil, nil)
	if _, err := NewBuilder(ex, Mode("superpixel"), 32); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := NewBuilder(ex, ModeGlobal, 0); err == nil {
		t.Error("expected error for zero cell size")
	}
}

func TestBuilder_dim(t *testing.T) {
	ex := features.NewMockExtractor(128, nil, nil)
	global, err := NewBuilder(ex, ModeGlobal, 32)
	if err != nil {
		t.Fatal(err)
	}
	if global.Dim() != 131 {
		t.Errorf("global Dim()=%d, want 131", global.Dim())
	}
	region, err := NewBuilder(ex, ModeRegion, 32)
	if err != nil {
		t.Fatal(err)
	}
	if region.Dim() != 259 {
		t.Errorf("region Dim()=%d, want 259", region.Dim())
	}
}

func TestBuilder_globalNormalized(t *testing.T) {
	kps := []features.Keypoint{{X: 1, Y: 1}, {X: 2, Y: 2}}
	descs := [][]float32{{2, 0}, {4, 2}}
	ex := features.NewMockExtractor(2, kps, descs)
	b, err := NewBuilder(ex, ModeGlobal, 32)
	if err != nil {
		t.Fatal(err)
	}

	desc, err := b.Build(testImage(4, 4, 100, 120, 140))
	if err != nil {
		t.Fatal(err)
	}
	if len(desc) != 5 {
		t.Fatalf("len=%d, want 5", len(desc))
	}
	checkUnitNorm(t, desc)

	// Pre-normalization layout: [featMean | labMean] = [3, 1, 100, 120, 140].
	// Ratios survive normalization.
	if got, want := desc[0]/desc[1], float32(3.0); got != want {
		t.Errorf("feature mean ratio = %v, want %v", got, want)
	}
	if got, want := desc[2]/desc[3], float32(100.0/120.0); math.Abs(float64(got-want)) > 1e-6 {
		t.Errorf("color ratio = %v, want %v", got, want)
	}
}

func TestBuilder_noFeaturesZeroComponent(t *testing.T) {
	ex := features.NewMockExtractor(3, nil, nil)
	b, err := NewBuilder(ex, ModeGlobal, 32)
	if err != nil {
		t.Fatal(err)
	}
	desc, err := b.Build(testImage(4, 4, 50, 128, 128))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if desc[i] != 0 {
			t.Errorf("feature component %d = %v, want 0", i, desc[i])
		}
	}
	checkUnitNorm(t, desc)
}

func TestBuilder_allZeroStaysZero(t *testing.T) {
	ex := features.NewMockExtractor(2, nil, nil)
	b, err := NewBuilder(ex, ModeGlobal, 32)
	if err != nil {
		t.Fatal(err)
	}
	// No features and black Lab planes: nothing to normalize.
	desc, err := b.Build(testImage(4, 4, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range desc {
		if v != 0 {
			t.Errorf("component %d = %v, want 0", i, v)
		}
	}
}

func TestBuilder_regionUnweightedMean(t *testing.T) {
	// 4x2 image with cell size 2: one grid row, two regions. Region 0 holds
	// two keypoints with 1-dim descriptors 2 and 4; region 1 holds none. The
	// per-region means are 3 and 0, so the unweighted mean over regions is 1.5.
	kps := []features.Keypoint{{X: 0, Y: 0}, {X: 1, Y: 1}}
	descs := [][]float32{{2}, {4}}
	ex := features.NewMockExtractor(1, kps, descs)
	b, err := NewBuilder(ex, ModeRegion, 2)
	if err != nil {
		t.Fatal(err)
	}

	desc, err := b.Build(testImage(4, 2, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(desc) != 5 {
		t.Fatalf("len=%d, want 5", len(desc))
	}
	// Layout: [featMean | lab x3 | region feature mean] = [3, 0,0,0, 1.5].
	if got, want := desc[0]/desc[4], float32(2.0); got != want {
		t.Errorf("featMean/regionMean = %v, want %v", got, want)
	}
	checkUnitNorm(t, desc)
}

func TestBuilder_outOfBoundsKeypointsDiscarded(t *testing.T) {
	// Both keypoints round outside the 4x2 image, so the region component is
	// all zeros even though descriptors exist.
	kps := []features.Keypoint{{X: -1, Y: 0}, {X: 3.6, Y: 1}}
	descs := [][]float32{{5}, {7}}
	ex := features.NewMockExtractor(1, kps, descs)
	b, err := NewBuilder(ex, ModeRegion, 2)
	if err != nil {
		t.Fatal(err)
	}

	desc, err := b.Build(testImage(4, 2, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if desc[4] != 0 {
		t.Errorf("region component = %v, want 0 (keypoints out of bounds)", desc[4])
	}
	if desc[0] == 0 {
		t.Error("global feature mean should still include all descriptors")
	}
}

func TestBuilder_keypointRounding(t *testing.T) {
	// (1.4, 0) rounds to pixel (1, 0) in region 0; (2.5, 0) rounds to (3, 0)
	// in region 1 with cell size 2.
	kps := []features.Keypoint{{X: 1.4, Y: 0}, {X: 2.5, Y: 0}}
	descs := [][]float32{{8}, {2}}
	ex := features.NewMockExtractor(1, kps, descs)
	b, err := NewBuilder(ex, ModeRegion, 2)
	if err != nil {
		t.Fatal(err)
	}

	desc, err := b.Build(testImage(4, 2, 0, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	// Region means are 8 and 2; unweighted mean is 5. featMean is also 5, so
	// the two components must be equal.
	if desc[0] != desc[4] {
		t.Errorf("featMean %v != region mean %v", desc[0], desc[4])
	}
}

func TestBuilder_emptyImage(t *testing.T) {
	ex := features.NewMockExtractor(2, nil, nil)
	b, err := NewBuilder(ex, ModeGlobal, 32)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Build(nil); err == nil {
		t.Error("expected error for nil image")
	}
	if _, err := b.Build(&imaging.Image{}); err == nil {
		t.Error("expected error for zero-size image")
	}
}

func TestBuilder_buildFileDecodeError(t *testing.T) {
	ex := features.NewMockExtractor(2, nil, nil)
	b, err := NewBuilder(ex, ModeGlobal, 32)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.BuildFile(filepath.Join(t.TempDir(), "missing.jpg")); err == nil {
		t.Error("expected error for missing file")
	}
}
