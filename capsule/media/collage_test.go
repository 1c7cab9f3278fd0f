package media

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

func smallCollageConfig() CollageConfig {
	cfg := DefaultCollageConfig()
	cfg.CanvasSize = 600
	return cfg
}

// seedSelfies stores n day photos, skipping the indexes in missing, and
// returns the full ordered path list.
func seedSelfies(t *testing.T, store *memStore, n int, missing ...int) []string {
	t.Helper()
	skip := make(map[int]bool, len(missing))
	for _, i := range missing {
		skip[i] = true
	}

	paths := make([]string, n)
	for i := range paths {
		paths[i] = SelfiePath(fmt.Sprintf("2024-01-%02d", i+1))
		if !skip[i] {
			store.put(paths[i], encodeTestJPEG(t, solidImage(120, 90, red)))
		}
	}
	return paths
}

func TestGenerateCollage_EmptyInput(t *testing.T) {
	store := newMemStore()
	a := NewAssembler(store, smallCollageConfig(), nil)

	result := a.GenerateCollage(context.Background(), nil, "exports/out.jpg", "")

	collageErr, ok := result.(domain.CollageError)
	require.True(t, ok, "expected error, got %#v", result)
	assert.Equal(t, domain.EmptyInput, collageErr.Kind)
	assert.Equal(t, "No images to create collage", collageErr.Message)
	assert.Zero(t, store.writes)
}

func TestGenerateCollage_MissingImageBecomesPlaceholder(t *testing.T) {
	for _, diskBacked := range []bool{false, true} {
		t.Run(fmt.Sprintf("diskBacked=%v", diskBacked), func(t *testing.T) {
			store := newMemStore()
			paths := seedSelfies(t, store, 6, 3)
			cfg := smallCollageConfig()
			cfg.DiskBackedCanvas = diskBacked
			obs := &recordingObserver{}
			a := NewAssembler(store, cfg, obs)

			result := a.GenerateCollage(context.Background(), paths, "exports/out.jpg", "")

			success, ok := result.(domain.CollageSuccess)
			require.True(t, ok, "expected success, got %#v", result)
			assert.Equal(t, "exports/out.jpg", success.Path)
			assert.Equal(t, []int{3}, success.Placeholders)

			out := decodeTestJPEG(t, store.files[success.Path])
			require.Equal(t, image.Rect(0, 0, 600, 600), out.Bounds())

			plan, err := Plan(6, 600, 8, false)
			require.NoError(t, err)

			// index 3 sits at row 1, col 0 of a 3x3 grid
			ph := plan.CellRect(3)
			require.Equal(t, image.Pt(8, 205), ph.Min)
			assertColorNear(t, placeholderFill, out.At(ph.Min.X+5, ph.Min.Y+ph.Dy()/2), 24, "placeholder fill")
			assertColorNear(t, placeholderMark, out.At(ph.Min.X+ph.Dx()/2, ph.Min.Y+ph.Dy()/2), 24, "placeholder mark")

			for _, i := range []int{0, 1, 2, 4, 5} {
				r := plan.CellRect(i)
				assertColorNear(t, red, out.At(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2), 40, fmt.Sprintf("cell %d", i))
			}

			// unused cells of the grid stay white
			empty := plan.CellRect(7)
			assertColorNear(t, color.White, out.At(empty.Min.X+empty.Dx()/2, empty.Min.Y+empty.Dy()/2), 8, "unused cell")

			require.Len(t, obs.collages, 1)
			assert.Equal(t, 6, obs.cells[0])
		})
	}
}

func TestGenerateCollage_Title(t *testing.T) {
	store := newMemStore()
	paths := seedSelfies(t, store, 4)
	a := NewAssembler(store, smallCollageConfig(), nil)

	result := a.GenerateCollage(context.Background(), paths, "exports/titled.jpg", "January 2024")

	require.IsType(t, domain.CollageSuccess{}, result)
	out := decodeTestJPEG(t, store.files["exports/titled.jpg"])
	require.Equal(t, image.Rect(0, 0, 600, 700), out.Bounds())

	dark := 0
	for y := 0; y < TitleBandHeight; y++ {
		for x := 0; x < 600; x++ {
			r, g, b, _ := out.At(x, y).RGBA()
			if r>>8 < 64 && g>>8 < 64 && b>>8 < 64 {
				dark++
			}
		}
	}
	assert.Greater(t, dark, 100, "expected title text in the band")

	plan, err := Plan(4, 600, 8, true)
	require.NoError(t, err)
	r := plan.CellRect(0)
	assertColorNear(t, red, out.At(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2), 40)
}

func TestGenerateCollage_AllMissing(t *testing.T) {
	store := newMemStore()
	paths := seedSelfies(t, store, 2, 0, 1)
	a := NewAssembler(store, smallCollageConfig(), nil)

	result := a.GenerateCollage(context.Background(), paths, "exports/out.jpg", "")

	success, ok := result.(domain.CollageSuccess)
	require.True(t, ok, "expected success, got %#v", result)
	assert.Equal(t, []int{0, 1}, success.Placeholders)
}

func TestGenerateCollage_Errors(t *testing.T) {
	tests := []struct {
		name     string
		store    *memStore
		cfg      CollageConfig
		items    int
		output   string
		ctx      func() context.Context
		wantKind domain.ErrorKind
	}{
		{
			name:     "layout too small",
			store:    newMemStore(),
			cfg:      CollageConfig{CanvasSize: 100, Padding: 8},
			items:    121,
			output:   "exports/out.jpg",
			wantKind: domain.LayoutTooSmall,
		},
		{
			name:     "output not writable",
			store:    newMemStore("exports/"),
			cfg:      smallCollageConfig(),
			items:    3,
			output:   "exports/out.jpg",
			wantKind: domain.EncodeFailed,
		},
		{
			name:     "no output path",
			store:    newMemStore(),
			cfg:      smallCollageConfig(),
			items:    3,
			wantKind: domain.InvalidInput,
		},
		{
			name:   "cancelled",
			store:  newMemStore(),
			cfg:    smallCollageConfig(),
			items:  3,
			output: "exports/out.jpg",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantKind: domain.Cancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := make([]string, tt.items)
			for i := range paths {
				paths[i] = fmt.Sprintf("selfies/missing-%d.jpg", i)
			}
			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}

			result := NewAssembler(tt.store, tt.cfg, nil).GenerateCollage(ctx, paths, tt.output, "")

			collageErr, ok := result.(domain.CollageError)
			require.True(t, ok, "expected error, got %#v", result)
			assert.Equal(t, tt.wantKind, collageErr.Kind)
			assert.Empty(t, tt.store.files)
		})
	}
}

func TestCoverCrop(t *testing.T) {
	tests := []struct {
		name       string
		src        image.Image
		w, h       int
		wantCenter color.Color
	}{
		{"landscape", solidImage(4000, 3000, green), 400, 400, green},
		{"portrait", solidImage(300, 400, blue), 400, 400, blue},
		{"upscale", solidImage(10, 20, red), 64, 48, red},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := CoverCrop(tt.src, tt.w, tt.h)
			assert.Equal(t, tt.w, out.Bounds().Dx())
			assert.Equal(t, tt.h, out.Bounds().Dy())
			assertColorNear(t, tt.wantCenter, out.At(tt.w/2, tt.h/2), 2)
		})
	}
}

func TestCoverCrop_CropsSymmetrically(t *testing.T) {
	// a 4:3 image cropped to a square loses an eighth of its width on each side
	src := solidImage(400, 300, blue)
	for x := 0; x < 50; x++ {
		for y := 0; y < 300; y++ {
			src.Set(x, y, red)
			src.Set(399-x, y, red)
		}
	}

	out := CoverCrop(src, 300, 300)
	assertColorNear(t, blue, out.At(2, 150), 40, "left edge")
	assertColorNear(t, blue, out.At(297, 150), 40, "right edge")
}

func TestFitTitle(t *testing.T) {
	f, err := loadBoldFont()
	require.NoError(t, err)
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: 48, DPI: 72})
	require.NoError(t, err)
	defer face.Close()
	d := &font.Drawer{Face: face}

	assert.Equal(t, "Jan", fitTitle(d, "Jan", fixed.I(600)))

	long := "A collage title that is far too long to fit on a small canvas"
	got := fitTitle(d, long, fixed.I(300))
	assert.NotEqual(t, long, got)
	assert.Contains(t, got, ellipsis)
	assert.LessOrEqual(t, d.MeasureString(got), fixed.I(300))

	assert.Empty(t, fitTitle(d, long, 0))
}

func TestCompositeCell_Border(t *testing.T) {
	store := newMemStore()
	store.put("selfies/real.jpg", encodeTestJPEG(t, solidImage(64, 48, blue)))
	c := &compositor{store: store, borderWidth: 4}

	dst := solidImage(200, 100, color.White)
	drawn := image.Rect(10, 10, 60, 60)
	missing := image.Rect(110, 10, 160, 60)

	require.True(t, c.compositeCell(dst, drawn, "selfies/real.jpg"))
	require.False(t, c.compositeCell(dst, missing, "selfies/gone.jpg"))

	mid := drawn.Min.Y + drawn.Dy()/2
	for _, p := range []image.Point{
		{X: drawn.Min.X - 1, Y: mid},
		{X: drawn.Min.X - 4, Y: mid},
		{X: drawn.Max.X, Y: mid},
		{X: drawn.Max.X + 3, Y: mid},
		{X: drawn.Min.X + drawn.Dx()/2, Y: drawn.Min.Y - 1},
		{X: drawn.Min.X + drawn.Dx()/2, Y: drawn.Max.Y + 3},
		{X: drawn.Min.X - 4, Y: drawn.Min.Y - 4},
	} {
		assert.Equal(t, borderColor, dst.RGBAAt(p.X, p.Y), "border at %v", p)
	}

	// the frame is drawn outside the cell only
	assertColorNear(t, blue, dst.At(drawn.Min.X, mid), 24, "cell edge")
	assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, dst.RGBAAt(drawn.Min.X-5, mid), "beyond the border")

	pmid := missing.Min.Y + missing.Dy()/2
	for _, p := range []image.Point{
		{X: missing.Min.X - 1, Y: pmid},
		{X: missing.Max.X, Y: pmid},
		{X: missing.Min.X + missing.Dx()/2, Y: missing.Min.Y - 1},
		{X: missing.Min.X + missing.Dx()/2, Y: missing.Max.Y},
	} {
		assert.Equal(t, color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, dst.RGBAAt(p.X, p.Y), "no border at %v", p)
	}
}

func TestGenerateCollage_ThirtyDays(t *testing.T) {
	store := newMemStore()
	paths := make([]string, 30)
	for i := range paths {
		paths[i] = SelfiePath(fmt.Sprintf("2024-01-%02d", i+1))
		c := color.Color(red)
		if i == 7 {
			c = blue
		}
		store.put(paths[i], encodeTestJPEG(t, solidImage(120, 90, c)))
	}
	obs := &recordingObserver{}
	a := NewAssembler(store, DefaultCollageConfig(), obs)

	result := a.GenerateCollage(context.Background(), paths, "exports/month.jpg", "")

	success, ok := result.(domain.CollageSuccess)
	require.True(t, ok, "expected success, got %#v", result)
	assert.Empty(t, success.Placeholders)

	out := decodeTestJPEG(t, store.files["exports/month.jpg"])
	require.Equal(t, image.Rect(0, 0, 2048, 2048), out.Bounds())

	plan, err := Plan(30, 2048, 8, false)
	require.NoError(t, err)
	cell := plan.CellRect(7)
	require.Equal(t, image.Rect(348, 348, 680, 680), cell)

	assertColorNear(t, blue, out.At(cell.Min.X+cell.Dx()/2, cell.Min.Y+cell.Dy()/2), 40, "cell 7 center")
	assertColorNear(t, blue, out.At(cell.Min.X+8, cell.Min.Y+8), 48, "cell 7 inner corner")
	assertColorNear(t, borderColor, out.At(cell.Min.X-2, cell.Min.Y+cell.Dy()/2), 48, "cell 7 border")

	for _, i := range []int{6, 8, 29} {
		r := plan.CellRect(i)
		assertColorNear(t, red, out.At(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2), 40, fmt.Sprintf("cell %d", i))
	}

	require.Len(t, obs.cells, 1)
	assert.Equal(t, 30, obs.cells[0])
}
