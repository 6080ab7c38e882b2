package imaging

import "math"

// labFromRGB converts one sRGB pixel to 8-bit CIE Lab using the D65 white
// point and the 8-bit scaling convention L*255/100, a+128, b+128 (the same
// layout produced by common image libraries for 8-bit Lab planes).
func labFromRGB(r8, g8, b8 uint8) (uint8, uint8, uint8) {
	r := float64(r8) / 255.0
	g := float64(g8) / 255.0
	b := float64(b8) / 255.0

	x := 0.412453*r + 0.357580*g + 0.180423*b
	y := 0.212671*r + 0.715160*g + 0.072169*b
	z := 0.019334*r + 0.119193*g + 0.950227*b

	x /= 0.950456
	z /= 1.088754

	fx := labF(x)
	fy := labF(y)
	fz := labF(z)

	var l float64
	if y > labThreshold {
		l = 116.0*fy - 16.0
	} else {
		l = 903.3 * y
	}
	a := 500.0*(fx-fy) + 128.0
	bb := 200.0*(fy-fz) + 128.0

	return clampU8(l * 255.0 / 100.0), clampU8(a), clampU8(bb)
}

const labThreshold = 0.008856

func labF(t float64) float64 {
	if t > labThreshold {
		return math.Cbrt(t)
	}
	return 7.787*t + 16.0/116.0
}

func clampU8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
