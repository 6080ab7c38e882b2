package features

import (
	"sort"

	"github.com/hyperjump/miru/internal/imaging"
)

// Segment-test corner detection on a Bresenham circle of radius 3, with a
// 3x3 non-maximum suppression pass and a score cap at maxKeypoints.

// circleOffsets are the 16 (dx, dy) offsets of the radius-3 circle.
var circleOffsets = [16][2]int{
	{0, -3}, {1, -3}, {2, -2}, {3, -1},
	{3, 0}, {3, 1}, {2, 2}, {1, 3},
	{0, 3}, {-1, 3}, {-2, 2}, {-3, 1},
	{-3, 0}, {-3, -1}, {-2, -2}, {-1, -3},
}

const (
	cornerThreshold = 20
	cornerArc       = 9
	// patchMargin keeps keypoints far enough from the border that every
	// descriptor patch fits inside the image.
	patchMargin = 16
)

// detectCorners finds segment-test corners in img, suppresses non-maxima,
// and returns at most maxKeypoints keypoints ordered strongest first.
func detectCorners(img *imaging.Image) []Keypoint {
	w, h := img.Width, img.Height
	if w <= 2*patchMargin || h <= 2*patchMargin {
		return nil
	}

	scores := make([]float32, w*h)
	for y := patchMargin; y < h-patchMargin; y++ {
		for x := patchMargin; x < w-patchMargin; x++ {
			if s := cornerScore(img, x, y); s > 0 {
				scores[y*w+x] = s
			}
		}
	}

	var kps []Keypoint
	for y := patchMargin; y < h-patchMargin; y++ {
		for x := patchMargin; x < w-patchMargin; x++ {
			s := scores[y*w+x]
			if s == 0 || !isLocalMax(scores, w, x, y) {
				continue
			}
			kps = append(kps, Keypoint{X: float32(x), Y: float32(y), Score: s})
		}
	}

	sort.Slice(kps, func(i, j int) bool { return kps[i].Score > kps[j].Score })
	if len(kps) > maxKeypoints {
		kps = kps[:maxKeypoints]
	}
	return kps
}

// cornerScore runs the segment test at (x, y): a corner needs cornerArc
// contiguous circle pixels all brighter or all darker than the center by the
// threshold. The score is the sum of absolute differences over the circle.
func cornerScore(img *imaging.Image, x, y int) float32 {
	center := int(img.GrayAt(x, y))

	var brighter, darker [16]bool
	var score float32
	for i, off := range circleOffsets {
		v := int(img.GrayAt(x+off[0], y+off[1]))
		d := v - center
		if d > cornerThreshold {
			brighter[i] = true
		} else if d < -cornerThreshold {
			darker[i] = true
		}
		if d < 0 {
			d = -d
		}
		score += float32(d)
	}

	if hasContiguousArc(brighter) || hasContiguousArc(darker) {
		return score
	}
	return 0
}

// hasContiguousArc reports whether flags contains cornerArc contiguous true
// entries, treating the array as circular.
func hasContiguousArc(flags [16]bool) bool {
	run := 0
	// Scan twice around the circle to catch arcs crossing the wrap point.
	for i := 0; i < 32; i++ {
		if flags[i%16] {
			run++
			if run >= cornerArc {
				return true
			}
		} else {
			run = 0
		}
	}
	return false
}

func isLocalMax(scores []float32, w, x, y int) bool {
	s := scores[y*w+x]
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			n := scores[(y+dy)*w+(x+dx)]
			if n > s {
				return false
			}
			// Equal-score neighbors: keep the first in scan order.
			if n == s && (dy < 0 || (dy == 0 && dx < 0)) {
				return false
			}
		}
	}
	return true
}
