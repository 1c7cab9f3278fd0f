package application

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"testing"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dfryer1193/timecapsule/capsule/media"
	"github.com/dfryer1193/timecapsule/capsule/persistence"
	"github.com/dfryer1193/timecapsule/shared/db/sqlite"
	"github.com/dfryer1193/timecapsule/shared/storage"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

var (
	testColorRed  = color.RGBA{R: 0xFF, A: 0xFF}
	testColorBlue = color.RGBA{B: 0xFF, A: 0xFF}
)

type testEnv struct {
	capsules  *persistence.SQLiteCapsuleRepository
	entries   *persistence.SQLiteEntryRepository
	store     *storage.FileStore
	capsule   *CapsuleService
	selfie    *SelfieService
	export    *ExportService
	assembler *media.Assembler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database := sqlite.NewSQLiteDB(&sqlite.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, database.Connect())
	t.Cleanup(func() { database.Close() })

	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)

	collageCfg := media.DefaultCollageConfig()
	collageCfg.CanvasSize = 512

	env := &testEnv{
		capsules:  persistence.NewCapsuleRepository(database.DB()),
		entries:   persistence.NewEntryRepository(database.DB()),
		store:     store,
		assembler: media.NewAssembler(store, collageCfg, nil),
	}

	normalizer := media.NewNormalizer(store, nil, media.DefaultNormalizeConfig(), nil)
	env.capsule = NewCapsuleService(env.capsules)
	env.selfie = NewSelfieService(env.capsules, env.entries, normalizer, store)
	env.export = NewExportService(env.capsules, env.entries, env.assembler, store, 2)
	t.Cleanup(func() { env.export.Close() })

	fixed := func() time.Time { return testNow }
	env.capsule.now = fixed
	env.selfie.now = fixed
	env.export.now = fixed
	return env
}

func (e *testEnv) activeCapsule(t *testing.T) *domain.Capsule {
	t.Helper()
	c, err := e.capsule.GetOrCreateActive(context.Background())
	require.NoError(t, err)
	return c
}

// saveEntry stores a solid-color selfie and fails the test unless it succeeds.
func (e *testEnv) saveEntry(t *testing.T, capsuleID int64, date string, c color.Color) *domain.Entry {
	t.Helper()
	result, entry := e.selfie.SaveEntry(context.Background(), capsuleID, date, "happy", testJPEG(t, 64, 48, c))
	require.IsType(t, domain.SaveSuccess{}, result, "save %s: %#v", date, result)
	require.NotNil(t, entry)
	return entry
}

func testJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
