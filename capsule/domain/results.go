package domain

import "fmt"

// ErrorKind distinguishes the fatal failures of the image pipeline.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// DecodeFailed means the source bytes are not a decodable image
	DecodeFailed
	// EncodeFailed means the output could not be encoded or written
	EncodeFailed
	// EmptyInput means a collage or export was requested with nothing to draw
	EmptyInput
	// LayoutTooSmall means the grid cell size computed to zero or less
	LayoutTooSmall
	InvalidInput
	NoValidImages
	Cancelled
)

func (k ErrorKind) String() string {
	switch k {
	case DecodeFailed:
		return "decode_failed"
	case EncodeFailed:
		return "encode_failed"
	case EmptyInput:
		return "empty_input"
	case LayoutTooSmall:
		return "layout_too_small"
	case InvalidInput:
		return "invalid_input"
	case NoValidImages:
		return "no_valid_images"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Failure is the error payload carried by every result type.
type Failure struct {
	Kind    ErrorKind
	Message string
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func newFailure(kind ErrorKind, format string, args ...any) Failure {
	return Failure{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// SaveResult is the outcome of storing one day's selfie.
// It is either a SaveSuccess or a SaveError.
type SaveResult interface {
	isSaveResult()
}

// SaveSuccess reports the stored files. ThumbnailPath is empty when the
// thumbnail could not be derived; ThumbnailErr then holds the reason.
type SaveSuccess struct {
	ImagePath     string
	ThumbnailPath string
	FileName      string
	ThumbnailErr  error
}

type SaveError struct {
	Failure
}

func (SaveSuccess) isSaveResult() {}
func (SaveError) isSaveResult()   {}

func NewSaveError(kind ErrorKind, format string, args ...any) SaveError {
	return SaveError{newFailure(kind, format, args...)}
}

// CollageResult is the outcome of compositing a collage.
// It is either a CollageSuccess or a CollageError.
type CollageResult interface {
	isCollageResult()
}

// CollageSuccess reports the written collage. Placeholders lists the input
// indices whose source could not be loaded and were drawn as placeholders.
type CollageSuccess struct {
	Path         string
	Placeholders []int
}

type CollageError struct {
	Failure
}

func (CollageSuccess) isCollageResult() {}
func (CollageError) isCollageResult()   {}

func NewCollageError(kind ErrorKind, format string, args ...any) CollageError {
	return CollageError{newFailure(kind, format, args...)}
}

// ExportResult is the outcome of exporting a whole capsule.
type ExportResult interface {
	isExportResult()
}

type ExportSuccess struct {
	Path         string
	FileName     string
	ImageCount   int
	Placeholders []int
}

type ExportError struct {
	Failure
}

func (ExportSuccess) isExportResult() {}
func (ExportError) isExportResult()   {}

func NewExportError(kind ErrorKind, format string, args ...any) ExportError {
	return ExportError{newFailure(kind, format, args...)}
}
