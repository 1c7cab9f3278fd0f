package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
)

var ErrDecodeFailed = errors.New("source is not a decodable image")

// MaxSourcePixels bounds the declared size of a source image. Larger sources
// are rejected before their pixels are decoded.
const MaxSourcePixels = 64 << 20

// Normalize decodes src, rotates it upright according to its orientation
// metadata and shrinks it so that neither side exceeds maxDimension.
// Missing or unreadable metadata means no rotation.
func Normalize(src []byte, maxDimension int, orientation OrientationReader) (image.Image, error) {
	img, err := decode(src)
	if err != nil {
		return nil, err
	}

	o := OrientationUnknown
	if orientation != nil {
		o = orientation.ReadOrientation(src)
	}

	return FitWithin(Upright(img, o), maxDimension), nil
}

func decode(src []byte) (image.Image, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecodeFailed)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxSourcePixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecodeFailed, cfg.Width, cfg.Height, MaxSourcePixels)
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecodeFailed)
	}
	return img, nil
}

// FitWithin returns img unchanged when both sides are within maxDimension,
// otherwise a resized copy whose longer side equals maxDimension.
func FitWithin(img image.Image, maxDimension int) image.Image {
	b := img.Bounds()
	w, h := TargetSize(b.Dx(), b.Dy(), maxDimension)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// TargetSize computes the aspect-preserving size whose longer side is
// maxDimension. Sizes already within bounds are returned as-is.
func TargetSize(width, height, maxDimension int) (int, int) {
	if width <= 0 || height <= 0 || maxDimension <= 0 {
		return width, height
	}
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width >= height {
		h := int(math.Round(float64(height) * float64(maxDimension) / float64(width)))
		return maxDimension, max(h, 1)
	}
	w := int(math.Round(float64(width) * float64(maxDimension) / float64(height)))
	return max(w, 1), maxDimension
}

func encodeJPEG(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

// Normalizer stores one upright, downsized selfie and its thumbnail per day.
type Normalizer struct {
	store       domain.BlobStore
	orientation OrientationReader
	cfg         NormalizeConfig
	observer    Observer
}

func NewNormalizer(store domain.BlobStore, orientation OrientationReader, cfg NormalizeConfig, observer Observer) *Normalizer {
	d := DefaultNormalizeConfig()
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = d.MaxDimension
	}
	if cfg.ThumbnailDimension <= 0 {
		cfg.ThumbnailDimension = d.ThumbnailDimension
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = d.Quality
	}
	if orientation == nil {
		orientation = ExifOrientationReader{}
	}
	if observer == nil {
		observer = nopObserver{}
	}

	return &Normalizer{
		store:       store,
		orientation: orientation,
		cfg:         cfg,
		observer:    observer,
	}
}

// SaveSelfie normalizes src and writes the selfie and thumbnail files for dateKey,
// replacing any previous pair. A thumbnail failure does not fail the save.
func (n *Normalizer) SaveSelfie(src []byte, dateKey string) domain.SaveResult {
	start := time.Now()
	result := n.saveSelfie(src, dateKey)
	n.observer.ObserveNormalize(time.Since(start), result)
	return result
}

func (n *Normalizer) saveSelfie(src []byte, dateKey string) domain.SaveResult {
	if _, err := time.Parse(domain.DateLayout, dateKey); err != nil {
		return domain.NewSaveError(domain.InvalidInput, "Failed to save image: invalid date %q", dateKey)
	}

	img, err := Normalize(src, n.cfg.MaxDimension, n.orientation)
	if err != nil {
		log.Error().Err(err).Str("date", dateKey).Msg("Failed to decode selfie")
		return domain.NewSaveError(domain.DecodeFailed, "Failed to save image: %v", err)
	}

	imagePath := SelfiePath(dateKey)
	err = n.store.WriteAtomic(imagePath, func(w io.Writer) error {
		return encodeJPEG(w, img, n.cfg.Quality)
	})
	if err != nil {
		log.Error().Err(err).Str("path", imagePath).Msg("Failed to write selfie")
		return domain.NewSaveError(domain.EncodeFailed, "Failed to save image: %v", err)
	}

	result := domain.SaveSuccess{
		ImagePath: imagePath,
		FileName:  dateKey + ".jpg",
	}

	thumbPath := ThumbnailPath(dateKey)
	thumb := FitWithin(img, n.cfg.ThumbnailDimension)
	err = n.store.WriteAtomic(thumbPath, func(w io.Writer) error {
		return encodeJPEG(w, thumb, n.cfg.Quality)
	})
	if err != nil {
		log.Warn().Err(err).Str("path", thumbPath).Msg("Failed to write thumbnail, continuing without one")
		// a stale thumbnail from an earlier save would no longer match the selfie
		if rmErr := n.store.Remove(thumbPath); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", thumbPath).Msg("Failed to remove stale thumbnail")
		}
		result.ThumbnailErr = err
		return result
	}

	result.ThumbnailPath = thumbPath
	return result
}

// DeleteSelfie removes the selfie and thumbnail stored for dateKey.
func (n *Normalizer) DeleteSelfie(dateKey string) error {
	var errs []error
	if err := n.store.Remove(SelfiePath(dateKey)); err != nil {
		errs = append(errs, err)
	}
	if err := n.store.Remove(ThumbnailPath(dateKey)); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
