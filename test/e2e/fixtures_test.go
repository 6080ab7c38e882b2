package e2e

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/hyperjump/miru/internal/imaging"
)

func TestWriteCheckered_decodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.png")
	if err := WriteCheckered(path, color.RGBA{R: 210, G: 40, B: 40, A: 255}, 0); err != nil {
		t.Fatal(err)
	}

	img, err := imaging.DecodeFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if img.Width != imageSize || img.Height != imageSize {
		t.Errorf("decoded %dx%d, want %dx%d", img.Width, img.Height, imageSize, imageSize)
	}
}

func TestWriteCheckered_phaseShiftsPattern(t *testing.T) {
	dir := t.TempDir()
	col := color.RGBA{R: 40, G: 210, B: 40, A: 255}

	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	if err := WriteCheckered(a, col, 0); err != nil {
		t.Fatal(err)
	}
	if err := WriteCheckered(b, col, 3); err != nil {
		t.Fatal(err)
	}

	imgA, err := imaging.DecodeFile(a)
	if err != nil {
		t.Fatal(err)
	}
	imgB, err := imaging.DecodeFile(b)
	if err != nil {
		t.Fatal(err)
	}

	same := true
	for i := range imgA.Gray {
		if imgA.Gray[i] != imgB.Gray[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different phases must produce different images")
	}
}
