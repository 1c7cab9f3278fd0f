package media

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

var (
	borderColor     = color.RGBA{R: 0xCC, G: 0xCC, B: 0xCC, A: 0xFF}
	placeholderFill = color.RGBA{R: 0xCC, G: 0xCC, B: 0xCC, A: 0xFF}
	placeholderMark = color.RGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xFF}
)

const (
	// placeholderMargin is the fraction of the cell left empty around the X mark
	placeholderMargin = 0.3
	placeholderWidth  = 4
)

// compositor draws individual cells onto a canvas it does not own.
type compositor struct {
	store       domain.BlobStore
	borderWidth int
}

// compositeCell draws the image at path into rect, or a placeholder when the
// image cannot be loaded. It reports whether the real image was drawn.
func (c *compositor) compositeCell(dst *image.RGBA, rect image.Rectangle, path string) bool {
	src, err := c.load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Drawing placeholder for collage cell")
		drawPlaceholder(dst, rect)
		return false
	}

	cell := CoverCrop(src, rect.Dx(), rect.Dy())
	draw.Draw(dst, rect, cell, cell.Bounds().Min, draw.Src)
	strokeOutside(dst, rect, c.borderWidth, borderColor)
	return true
}

func (c *compositor) load(path string) (image.Image, error) {
	if path == "" {
		return nil, fmt.Errorf("no image path")
	}

	data, err := c.store.ReadBytes(path)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecodeFailed)
	}
	return img, nil
}

// CoverCrop scales img to the smallest size covering width x height and crops
// the overflow symmetrically, returning an image of exactly width x height.
func CoverCrop(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Linear)
}

// strokeOutside draws a frame of the given width just outside rect.
func strokeOutside(dst *image.RGBA, rect image.Rectangle, width int, c color.Color) {
	if width <= 0 {
		return
	}
	src := image.NewUniform(c)
	outer := rect.Inset(-width)
	edges := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, rect.Min.Y),
		image.Rect(outer.Min.X, rect.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, rect.Min.Y, rect.Min.X, rect.Max.Y),
		image.Rect(rect.Max.X, rect.Min.Y, outer.Max.X, rect.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e, src, image.Point{}, draw.Src)
	}
}

// drawPlaceholder fills rect with a flat color and marks it with a diagonal X.
func drawPlaceholder(dst *image.RGBA, rect image.Rectangle) {
	draw.Draw(dst, rect, image.NewUniform(placeholderFill), image.Point{}, draw.Src)

	size := min(rect.Dx(), rect.Dy())
	margin := int(float64(size) * placeholderMargin)
	span := size - 2*margin
	if span <= 0 {
		return
	}

	mark := image.NewUniform(placeholderMark)
	half := placeholderWidth / 2
	x0, y0 := rect.Min.X+margin, rect.Min.Y+margin
	x1 := rect.Min.X + size - margin - 1
	for i := 0; i <= span; i++ {
		for _, p := range []image.Point{{X: x0 + i, Y: y0 + i}, {X: x1 - i, Y: y0 + i}} {
			dot := image.Rect(p.X-half, p.Y-half, p.X-half+placeholderWidth, p.Y-half+placeholderWidth).Intersect(rect)
			draw.Draw(dst, dot, mark, image.Point{}, draw.Src)
		}
	}
}
