package media

import (
	"errors"
	"fmt"
	"image"
)

// TitleBandHeight is the height reserved above the grid when a title is drawn.
const TitleBandHeight = 100

var (
	ErrEmptyInput     = errors.New("no images to create collage")
	ErrLayoutTooSmall = errors.New("layout too small")
)

// GridPlan is the geometry of a square collage grid.
type GridPlan struct {
	ItemCount         int
	GridSize          int
	CellSizePx        int
	CanvasSizePx      int
	Padding           int
	TitleBandHeightPx int
}

// Plan lays itemCount cells out on the smallest square grid that fits them.
func Plan(itemCount, canvasSizePx, padding int, hasTitle bool) (GridPlan, error) {
	if itemCount < 1 {
		return GridPlan{}, ErrEmptyInput
	}

	g := gridSize(itemCount)
	cell := (canvasSizePx - (g+1)*padding) / g
	if cell <= 0 {
		return GridPlan{}, fmt.Errorf("%w: %d items on a %dpx canvas leave %dpx cells", ErrLayoutTooSmall, itemCount, canvasSizePx, cell)
	}

	plan := GridPlan{
		ItemCount:    itemCount,
		GridSize:     g,
		CellSizePx:   cell,
		CanvasSizePx: canvasSizePx,
		Padding:      padding,
	}
	if hasTitle {
		plan.TitleBandHeightPx = TitleBandHeight
	}
	return plan, nil
}

// gridSize is ceil(sqrt(n)) computed on integers.
func gridSize(n int) int {
	g := 1
	for g*g < n {
		g++
	}
	return g
}

// Cell returns the row and column of item i, filling rows left to right.
func (p GridPlan) Cell(i int) (row, col int) {
	return i / p.GridSize, i % p.GridSize
}

// CellRect returns the pixel rectangle of item i on the canvas.
func (p GridPlan) CellRect(i int) image.Rectangle {
	row, col := p.Cell(i)
	x := p.Padding + col*(p.CellSizePx+p.Padding)
	y := p.TitleBandHeightPx + p.Padding + row*(p.CellSizePx+p.Padding)
	return image.Rect(x, y, x+p.CellSizePx, y+p.CellSizePx)
}

// CanvasBounds is the full canvas, title band included.
func (p GridPlan) CanvasBounds() image.Rectangle {
	return image.Rect(0, 0, p.CanvasSizePx, p.CanvasSizePx+p.TitleBandHeightPx)
}

// TitleBand is the strip above the grid reserved for the title.
func (p GridPlan) TitleBand() image.Rectangle {
	return image.Rect(0, 0, p.CanvasSizePx, p.TitleBandHeightPx)
}
