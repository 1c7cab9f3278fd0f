package domain

import (
	"context"
	"time"
)

// Entry is one day's mood and photo within a capsule.
type Entry struct {
	ID            int64
	CapsuleID     int64
	Date          string
	DayNumber     int
	Mood          string
	ImagePath     string
	ImageFileName string
	ThumbnailPath string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type EntryRepository interface {
	// Upsert inserts the entry or replaces the one stored for the same capsule and date
	Upsert(ctx context.Context, e *Entry) error
	GetByDate(ctx context.Context, capsuleID int64, date string) (*Entry, error)

	// ListForCapsule returns entries ordered by ascending day number
	ListForCapsule(ctx context.Context, capsuleID int64) ([]*Entry, error)
	Delete(ctx context.Context, capsuleID int64, date string) error
	Count(ctx context.Context, capsuleID int64) (int, error)
	MaxDayNumber(ctx context.Context, capsuleID int64) (int, error)

	// CountByImagePath returns how many entries, across all capsules, reference imagePath
	CountByImagePath(ctx context.Context, imagePath string) (int, error)
}

// Progress summarises how far a capsule has been filled.
type Progress struct {
	Entries int
	LastDay int
}
