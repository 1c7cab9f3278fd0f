package domain

import (
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by repositories and stores when the requested item does not exist.
var ErrNotFound = errors.New("not found")

// BlobStore is the storage collaborator of the image pipeline.
// Paths are relative to the store's root; contents are opaque bytes.
type BlobStore interface {
	ReadBytes(path string) ([]byte, error)
	WriteBytes(path string, data []byte) error

	// WriteAtomic streams the output of fn into a temporary file and renames it into
	// place once fn and the flush succeed, so a failed write is never observable.
	WriteAtomic(path string, fn func(w io.Writer) error) error
	MkdirAll(dir string) error
	Remove(path string) error
	Exists(path string) bool
	Stat(path string) (size int64, modTime time.Time, err error)
}

// StorageInfo summarises disk usage of the stored images.
type StorageInfo struct {
	TotalSize      int64
	SelfiesSize    int64
	ThumbnailsSize int64
	ExportsSize    int64
	SelfieCount    int
}

// ExportStats summarises the exported collages on disk.
type ExportStats struct {
	TotalExports   int
	TotalSizeBytes int64
	LastExport     time.Time
}

// ManagedStore adds the housekeeping operations used by the application layer.
type ManagedStore interface {
	BlobStore

	// DirUsage returns the total size in bytes and the number of regular files below dir
	DirUsage(dir string) (size int64, files int, err error)

	// RemoveOlderThan deletes regular files in dir last modified before cutoff
	RemoveOlderThan(dir string, cutoff time.Time) (int, error)

	// ListFiles returns the names of the regular files in dir
	ListFiles(dir string) ([]string, error)
}
