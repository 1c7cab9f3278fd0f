package media

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Orientation is the rotation needed to display an image upright.
type Orientation int

const (
	OrientationUnknown Orientation = iota
	OrientationNormal
	OrientationRotate90
	OrientationRotate180
	OrientationRotate270
)

func (o Orientation) String() string {
	switch o {
	case OrientationNormal:
		return "normal"
	case OrientationRotate90:
		return "rotate90"
	case OrientationRotate180:
		return "rotate180"
	case OrientationRotate270:
		return "rotate270"
	default:
		return "unknown"
	}
}

// OrientationReader reads orientation metadata from encoded image bytes.
type OrientationReader interface {
	ReadOrientation(data []byte) Orientation
}

// ExifOrientationReader reads the EXIF orientation tag.
// Flipped orientations (2, 4, 5, 7) are reported as unknown.
type ExifOrientationReader struct{}

func (ExifOrientationReader) ReadOrientation(data []byte) (o Orientation) {
	// goexif can panic on truncated IFDs
	defer func() {
		if recover() != nil {
			o = OrientationUnknown
		}
	}()

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return OrientationUnknown
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationUnknown
	}

	v, err := tag.Int(0)
	if err != nil {
		return OrientationUnknown
	}

	switch v {
	case 1:
		return OrientationNormal
	case 3:
		return OrientationRotate180
	case 6:
		return OrientationRotate90
	case 8:
		return OrientationRotate270
	default:
		return OrientationUnknown
	}
}

// Upright rotates img clockwise by the amount o calls for.
func Upright(img image.Image, o Orientation) image.Image {
	// imaging rotates counter-clockwise
	switch o {
	case OrientationRotate90:
		return imaging.Rotate270(img)
	case OrientationRotate180:
		return imaging.Rotate180(img)
	case OrientationRotate270:
		return imaging.Rotate90(img)
	default:
		return img
	}
}
