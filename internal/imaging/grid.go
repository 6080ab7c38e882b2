package imaging

import "fmt"

// Grid partitions an image into fixed-size rectangular cells, each cell a
// coarse region. Cells in the last row/column may be smaller when the image
// dimensions are not multiples of the cell size.
type Grid struct {
	Width    int
	Height   int
	CellSize int
	Rows     int
	Cols     int
}

// NewGrid creates a grid over an height×width image with the given cell size.
func NewGrid(height, width, cellSize int) (*Grid, error) {
	if height <= 0 || width <= 0 {
		return nil, fmt.Errorf("grid requires positive dimensions, got %dx%d", width, height)
	}
	if cellSize <= 0 {
		return nil, fmt.Errorf("grid requires positive cell size, got %d", cellSize)
	}
	return &Grid{
		Width:    width,
		Height:   height,
		CellSize: cellSize,
		Rows:     (height + cellSize - 1) / cellSize,
		Cols:     (width + cellSize - 1) / cellSize,
	}, nil
}

// Regions returns the number of grid cells.
func (g *Grid) Regions() int {
	return g.Rows * g.Cols
}

// RegionAt returns the region id of pixel (x, y). Bounds are the caller's
// responsibility.
func (g *Grid) RegionAt(x, y int) int {
	return (y/g.CellSize)*g.Cols + x/g.CellSize
}

// Labels returns the per-pixel region ids, row-major.
func (g *Grid) Labels() []int {
	labels := make([]int, g.Width*g.Height)
	for y := 0; y < g.Height; y++ {
		row := (y / g.CellSize) * g.Cols
		for x := 0; x < g.Width; x++ {
			labels[y*g.Width+x] = row + x/g.CellSize
		}
	}
	return labels
}
