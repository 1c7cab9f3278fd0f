package media

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/stretchr/testify/require"
)

var (
	red   = color.RGBA{R: 0xFF, A: 0xFF}
	blue  = color.RGBA{B: 0xFF, A: 0xFF}
	green = color.RGBA{G: 0xFF, A: 0xFF}
)

func solidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// splitImage paints the left half with left and the right half with right.
func splitImage(w, h int, left, right color.Color) *image.RGBA {
	img := solidImage(w, h, left)
	draw.Draw(img, image.Rect(w/2, 0, w, h), image.NewUniform(right), image.Point{}, draw.Src)
	return img
}

func encodeTestJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}))
	return buf.Bytes()
}

// withExifOrientation inserts an APP1 segment carrying only the orientation tag after SOI.
func withExifOrientation(jpg []byte, orientation uint16) []byte {
	tiff := []byte{
		'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
		0x00, 0x01,
		0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, byte(orientation >> 8), byte(orientation), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	segLen := len(payload) + 2

	out := make([]byte, 0, len(jpg)+segLen+2)
	out = append(out, jpg[:2]...)
	out = append(out, 0xFF, 0xE1, byte(segLen>>8), byte(segLen))
	out = append(out, payload...)
	return append(out, jpg[2:]...)
}

func decodeTestJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// assertColorNear fails when any channel of got differs from want by more than tol.
func assertColorNear(t *testing.T, want color.Color, got color.Color, tol int, msgAndArgs ...any) {
	t.Helper()
	wr, wg, wb, _ := want.RGBA()
	gr, gg, gb, _ := got.RGBA()
	diff := func(a, b uint32) int {
		d := int(a>>8) - int(b>>8)
		if d < 0 {
			return -d
		}
		return d
	}
	if diff(wr, gr) > tol || diff(wg, gg) > tol || diff(wb, gb) > tol {
		t.Errorf("color %v not within %d of %v %s", got, tol, want, fmt.Sprint(msgAndArgs...))
	}
}

// memStore is an in-memory domain.BlobStore. Writes to paths starting with one
// of failPrefixes fail.
type memStore struct {
	mu           sync.Mutex
	files        map[string][]byte
	failPrefixes []string
	writes       int
}

var _ domain.BlobStore = (*memStore)(nil)

func newMemStore(failPrefixes ...string) *memStore {
	return &memStore{
		files:        make(map[string][]byte),
		failPrefixes: failPrefixes,
	}
}

func (m *memStore) put(path string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = data
}

func (m *memStore) ReadBytes(path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, domain.ErrNotFound)
	}
	return data, nil
}

func (m *memStore) WriteBytes(path string, data []byte) error {
	return m.WriteAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func (m *memStore) WriteAtomic(path string, fn func(w io.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	for _, p := range m.failPrefixes {
		if strings.HasPrefix(path, p) {
			return fmt.Errorf("write %s: permission denied", path)
		}
	}
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	m.files[path] = buf.Bytes()
	return nil
}

func (m *memStore) MkdirAll(string) error { return nil }

func (m *memStore) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
	return nil
}

func (m *memStore) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *memStore) Stat(path string) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[path]
	if !ok {
		return 0, time.Time{}, domain.ErrNotFound
	}
	return int64(len(data)), time.Now(), nil
}

type recordingObserver struct {
	mu        sync.Mutex
	normalize []domain.SaveResult
	collages  []domain.CollageResult
	cells     []int
}

func (r *recordingObserver) ObserveNormalize(_ time.Duration, result domain.SaveResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalize = append(r.normalize, result)
}

func (r *recordingObserver) ObserveCollage(_ time.Duration, cells int, result domain.CollageResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collages = append(r.collages, result)
	r.cells = append(r.cells, cells)
}

// pngDeclaring returns a 1x1 PNG whose header claims width x height pixels.
func pngDeclaring(t *testing.T, width, height uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 1, 1))))

	data := buf.Bytes()
	// signature, then the IHDR length and type; width and height open its payload
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}
