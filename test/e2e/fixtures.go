// Package e2e builds synthetic image corpora for end-to-end pipeline tests.
package e2e

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// classes are the corpus color classes; each gets a category label.
var classes = []struct {
	name string
	col  color.RGBA
}{
	{"red", color.RGBA{R: 210, G: 40, B: 40, A: 255}},
	{"green", color.RGBA{R: 40, G: 210, B: 40, A: 255}},
	{"blue", color.RGBA{R: 40, G: 40, B: 210, A: 255}},
}

const imageSize = 64

// WriteCheckered writes a checkerboard image in the given color. phase shifts
// the pattern so images within a class differ without leaving the class.
func WriteCheckered(path string, col color.RGBA, phase int) error {
	img := image.NewRGBA(image.Rect(0, 0, imageSize, imageSize))
	dark := color.RGBA{R: col.R / 4, G: col.G / 4, B: col.B / 4, A: 255}
	for y := 0; y < imageSize; y++ {
		for x := 0; x < imageSize; x++ {
			if ((x+phase)/8+y/8)%2 == 0 {
				img.Set(x, y, col)
			} else {
				img.Set(x, y, dark)
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
