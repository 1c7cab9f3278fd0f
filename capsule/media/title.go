package media

import (
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const (
	ellipsis = "…"
	// titleMargin is the horizontal space kept free on each side of the title
	titleMargin = 16
)

var (
	boldFontOnce sync.Once
	boldFont     *opentype.Font
	boldFontErr  error
)

func loadBoldFont() (*opentype.Font, error) {
	boldFontOnce.Do(func() {
		boldFont, boldFontErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldFontErr
}

// drawTitle renders title in black bold type centered in band. Titles wider
// than the band are truncated with an ellipsis.
func drawTitle(dst *image.RGBA, band image.Rectangle, title string, size float64) error {
	f, err := loadBoldFont()
	if err != nil {
		return fmt.Errorf("failed to parse title font: %w", err)
	}

	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return fmt.Errorf("failed to create title face: %w", err)
	}
	defer face.Close()

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
	}

	text := fitTitle(d, title, fixed.I(band.Dx()-2*titleMargin))
	if text == "" {
		return nil
	}

	width := d.MeasureString(text)
	m := face.Metrics()
	textHeight := m.Ascent + m.Descent
	bandW := fixed.I(band.Dx())
	bandH := fixed.I(band.Dy())

	d.Dot = fixed.Point26_6{
		X: fixed.I(band.Min.X) + (bandW-width)/2,
		Y: fixed.I(band.Min.Y) + (bandH-textHeight)/2 + m.Ascent,
	}
	d.DrawString(text)
	return nil
}

// fitTitle shortens title rune by rune until it fits maxWidth with an ellipsis appended.
func fitTitle(d *font.Drawer, title string, maxWidth fixed.Int26_6) string {
	if maxWidth <= 0 {
		return ""
	}
	if d.MeasureString(title) <= maxWidth {
		return title
	}

	runes := []rune(title)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ellipsis
		if d.MeasureString(candidate) <= maxWidth {
			return candidate
		}
	}
	return ""
}
