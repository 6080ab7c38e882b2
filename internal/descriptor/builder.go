// Package descriptor builds fixed-dimension, unit-normalized image
// descriptors from local features and Lab color statistics.
package descriptor

import (
	"fmt"
	"math"

	"github.com/hyperjump/miru/internal/features"
	"github.com/hyperjump/miru/internal/imaging"
	"github.com/hyperjump/miru/pkg/utils"
)

// Mode selects the descriptor layout.
type Mode string

const (
	// ModeGlobal is [feature mean | Lab mean]: featureDim + 3 components.
	ModeGlobal Mode = "global"
	// ModeRegion is [feature mean | Lab mean of region means | mean of
	// per-region feature means]: 2*featureDim + 3 components.
	ModeRegion Mode = "region"
)

// labDim is the color component width appended to every descriptor.
const labDim = 3

// Builder combines local-feature statistics with color statistics into one
// descriptor per image. A finished descriptor has unit L2 norm unless every
// component is zero, in which case it is left as the zero vector.
type Builder struct {
	extractor features.Extractor
	mode      Mode
	cellSize  int
}

// NewBuilder creates a builder. cellSize is only used in region mode.
func NewBuilder(extractor features.Extractor, mode Mode, cellSize int) (*Builder, error) {
	switch mode {
	case ModeGlobal, ModeRegion:
	default:
		return nil, fmt.Errorf("unknown descriptor mode %q", mode)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %d", cellSize)
	}
	return &Builder{extractor: extractor, mode: mode, cellSize: cellSize}, nil
}

// Dim returns the descriptor length for this builder's feature type and mode.
func (b *Builder) Dim() int {
	if b.mode == ModeRegion {
		return 2*b.extractor.Dim() + labDim
	}
	return b.extractor.Dim() + labDim
}

// Mode returns the descriptor mode.
func (b *Builder) Mode() Mode { return b.mode }

// Feature returns the feature type name.
func (b *Builder) Feature() string { return b.extractor.Name() }

// BuildFile decodes the image at path and builds its descriptor.
func (b *Builder) BuildFile(path string) ([]float32, error) {
	img, err := imaging.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return b.Build(img)
}

// Build computes the descriptor for img. img must be non-empty; decode
// validation is the caller's responsibility.
func (b *Builder) Build(img *imaging.Image) ([]float32, error) {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("descriptor builder called on empty image")
	}

	keypoints, descs := b.extractor.Detect(img)
	featMean := meanRows(descs, b.extractor.Dim())

	if b.mode == ModeGlobal {
		out := make([]float32, 0, b.Dim())
		out = append(out, featMean...)
		out = append(out, imageLabMean(img)...)
		utils.NormalizeL2(out)
		return out, nil
	}

	grid, err := imaging.NewGrid(img.Height, img.Width, b.cellSize)
	if err != nil {
		return nil, err
	}
	labRegionMean := regionLabMean(img, grid)
	regionFeat := regionFeatureMean(img, grid, keypoints, descs, b.extractor.Dim())

	out := make([]float32, 0, b.Dim())
	out = append(out, featMean...)
	out = append(out, labRegionMean...)
	out = append(out, regionFeat...)
	utils.NormalizeL2(out)
	return out, nil
}

// meanRows returns the component-wise mean of rows, or the zero vector of
// length dim when rows is empty.
func meanRows(rows [][]float32, dim int) []float32 {
	mean := make([]float32, dim)
	if len(rows) == 0 {
		return mean
	}
	for _, row := range rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	inv := 1.0 / float32(len(rows))
	for j := range mean {
		mean[j] *= inv
	}
	return mean
}

// imageLabMean returns the mean Lab color over all pixels.
func imageLabMean(img *imaging.Image) []float32 {
	var l, a, b float64
	n := len(img.L)
	for i := 0; i < n; i++ {
		l += float64(img.L[i])
		a += float64(img.A[i])
		b += float64(img.B[i])
	}
	inv := 1.0 / float64(n)
	return []float32{float32(l * inv), float32(a * inv), float32(b * inv)}
}

// regionLabMean computes each region's mean Lab color, then returns the
// unweighted mean over regions. Edge regions are smaller than interior ones,
// so this differs from the whole-image pixel mean.
func regionLabMean(img *imaging.Image, grid *imaging.Grid) []float32 {
	numRegions := grid.Regions()
	sums := make([][3]float64, numRegions)
	counts := make([]int, numRegions)

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r := grid.RegionAt(x, y)
			i := y*img.Width + x
			sums[r][0] += float64(img.L[i])
			sums[r][1] += float64(img.A[i])
			sums[r][2] += float64(img.B[i])
			counts[r]++
		}
	}

	var mean [3]float64
	for r := 0; r < numRegions; r++ {
		if counts[r] == 0 {
			continue
		}
		inv := 1.0 / float64(counts[r])
		mean[0] += sums[r][0] * inv
		mean[1] += sums[r][1] * inv
		mean[2] += sums[r][2] * inv
	}
	inv := 1.0 / float64(numRegions)
	return []float32{float32(mean[0] * inv), float32(mean[1] * inv), float32(mean[2] * inv)}
}

// regionFeatureMean assigns each keypoint to the region containing its
// nearest-integer pixel (discarding keypoints that round outside the image),
// computes each region's mean feature vector, and returns the unweighted mean
// over all regions. Regions with no keypoints contribute zero rows.
func regionFeatureMean(img *imaging.Image, grid *imaging.Grid, keypoints []features.Keypoint, descs [][]float32, dim int) []float32 {
	numRegions := grid.Regions()
	sums := make([][]float32, numRegions)
	counts := make([]int, numRegions)

	for i, kp := range keypoints {
		x := int(math.Round(float64(kp.X)))
		y := int(math.Round(float64(kp.Y)))
		if x < 0 || x >= img.Width || y < 0 || y >= img.Height {
			continue
		}
		r := grid.RegionAt(x, y)
		if sums[r] == nil {
			sums[r] = make([]float32, dim)
		}
		for j, v := range descs[i] {
			sums[r][j] += v
		}
		counts[r]++
	}

	out := make([]float32, dim)
	for r := 0; r < numRegions; r++ {
		if counts[r] == 0 {
			continue
		}
		inv := 1.0 / float32(counts[r])
		for j := range sums[r] {
			out[j] += sums[r][j] * inv
		}
	}
	inv := 1.0 / float32(numRegions)
	for j := range out {
		out[j] *= inv
	}
	return out
}
