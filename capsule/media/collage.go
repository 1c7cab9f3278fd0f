package media

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"io"
	"runtime/debug"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/rs/zerolog/log"
)

// Assembler composites ordered day photos into a single square collage.
// It keeps no state between calls; each call allocates and releases its own canvas.
type Assembler struct {
	store    domain.BlobStore
	cfg      CollageConfig
	observer Observer
	cells    *compositor
}

func NewAssembler(store domain.BlobStore, cfg CollageConfig, observer Observer) *Assembler {
	cfg = cfg.withDefaults()
	if observer == nil {
		observer = nopObserver{}
	}

	return &Assembler{
		store:    store,
		cfg:      cfg,
		observer: observer,
		cells: &compositor{
			store:       store,
			borderWidth: cfg.BorderWidth,
		},
	}
}

// GenerateCollage draws imagePaths in order onto a grid, lowest index in the
// top-left cell, and writes the result to output as a JPEG. An empty title
// leaves out the title band. Unreadable images become placeholder cells.
func (a *Assembler) GenerateCollage(ctx context.Context, imagePaths []string, output string, title string) domain.CollageResult {
	start := time.Now()
	result := a.generate(ctx, imagePaths, output, title)
	a.observer.ObserveCollage(time.Since(start), len(imagePaths), result)
	return result
}

func (a *Assembler) generate(ctx context.Context, imagePaths []string, output string, title string) domain.CollageResult {
	if len(imagePaths) == 0 {
		return domain.NewCollageError(domain.EmptyInput, "No images to create collage")
	}
	if output == "" {
		return domain.NewCollageError(domain.InvalidInput, "output path cannot be empty")
	}

	plan, err := Plan(len(imagePaths), a.cfg.CanvasSize, a.cfg.Padding, title != "")
	if err != nil {
		return domain.NewCollageError(domain.LayoutTooSmall, "Error creating collage: %v", err)
	}

	c, err := newCanvas(plan.CanvasBounds(), a.cfg.DiskBackedCanvas)
	if err != nil {
		return domain.NewCollageError(domain.EncodeFailed, "Error creating collage: %v", err)
	}
	defer func() {
		if err := c.Release(); err != nil {
			log.Warn().Err(err).Msg("Failed to release collage canvas")
		}
	}()

	draw.Draw(c.img, c.img.Bounds(), image.White, image.Point{}, draw.Src)

	if title != "" {
		if err := drawTitle(c.img, plan.TitleBand(), title, a.cfg.TitleFontSize); err != nil {
			log.Warn().Err(err).Str("title", title).Msg("Failed to draw collage title")
		}
	}

	placeholders, err := a.drawCells(ctx, c.img, plan, imagePaths)
	if err != nil {
		return domain.NewCollageError(domain.Cancelled, "Error creating collage: %v", err)
	}

	err = a.store.WriteAtomic(output, func(w io.Writer) error {
		return encodeJPEG(w, c.img, a.cfg.Quality)
	})
	if err != nil {
		log.Error().Err(err).Str("path", output).Msg("Failed to save collage")
		return domain.NewCollageError(domain.EncodeFailed, "Failed to save collage: %v", err)
	}

	return domain.CollageSuccess{
		Path:         output,
		Placeholders: placeholders,
	}
}

// drawCells composites the cells sequentially in batches. Between batches the
// context is checked and, for large collages, freed memory is returned to the OS.
func (a *Assembler) drawCells(ctx context.Context, dst *image.RGBA, plan GridPlan, imagePaths []string) ([]int, error) {
	var placeholders []int
	reclaim := len(imagePaths) > a.cfg.ReclaimThreshold

	for batchStart := 0; batchStart < len(imagePaths); batchStart += a.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, errors.Join(errors.New("collage generation interrupted"), err)
		}

		batchEnd := min(batchStart+a.cfg.BatchSize, len(imagePaths))
		for i := batchStart; i < batchEnd; i++ {
			if !a.cells.compositeCell(dst, plan.CellRect(i), imagePaths[i]) {
				placeholders = append(placeholders, i)
			}
		}

		if reclaim {
			debug.FreeOSMemory()
		}
	}

	return placeholders, nil
}
