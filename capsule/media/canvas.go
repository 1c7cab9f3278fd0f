package media

import (
	"fmt"
	"image"
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// canvas is the pixel buffer of one collage call. It is owned by exactly one
// GenerateCollage invocation and must be released when that call returns.
type canvas struct {
	img     *image.RGBA
	release func() error
}

func newCanvas(bounds image.Rectangle, diskBacked bool) (*canvas, error) {
	if diskBacked {
		return newMappedCanvas(bounds)
	}
	img := image.NewRGBA(bounds)
	return &canvas{
		img:     img,
		release: func() error { return nil },
	}, nil
}

// newMappedCanvas backs the pixel buffer with a memory-mapped temp file so the
// kernel can page it out under memory pressure.
func newMappedCanvas(bounds image.Rectangle) (*canvas, error) {
	size := bounds.Dx() * bounds.Dy() * 4

	f, err := os.CreateTemp("", "collage-*.canvas")
	if err != nil {
		return nil, fmt.Errorf("failed to create canvas file: %w", err)
	}
	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}

	if err := f.Truncate(int64(size)); err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to size canvas file: %w", err)
	}

	mapped, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to map canvas file: %w", err)
	}

	img := &image.RGBA{
		Pix:    mapped,
		Stride: bounds.Dx() * 4,
		Rect:   bounds,
	}

	return &canvas{
		img: img,
		release: func() error {
			err := mapped.Unmap()
			cleanup()
			return err
		},
	}, nil
}

// Release frees the buffer. The canvas must not be used afterwards.
func (c *canvas) Release() error {
	if c == nil || c.img == nil {
		return nil
	}
	c.img = nil
	return c.release()
}
