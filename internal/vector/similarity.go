package vector

import "math"

// EuclideanDistance returns the L2 distance between two vectors of equal
// length (the caller's responsibility).
func EuclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
