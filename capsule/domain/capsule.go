package domain

import (
	"context"
	"time"
)

// CapsuleLength is the number of days a capsule spans.
const CapsuleLength = 30

// DateLayout is the layout of date keys ("2025-06-15").
const DateLayout = "2006-01-02"

// Capsule represents a 30-day period during which daily entries accumulate.
// At most one capsule is active at a time.
type Capsule struct {
	ID         int64
	Name       string
	StartDate  string
	EndDate    string
	IsActive   bool
	CreatedAt  time.Time
	ExportedAt time.Time
	ExportPath string
}

type CapsuleRepository interface {
	// Create inserts a new active capsule and deactivates every other one
	Create(ctx context.Context, c *Capsule) (int64, error)
	Get(ctx context.Context, id int64) (*Capsule, error)
	GetActive(ctx context.Context) (*Capsule, error)
	List(ctx context.Context) ([]*Capsule, error)
	DeactivateAll(ctx context.Context) error
	MarkExported(ctx context.Context, id int64, exportPath string, at time.Time) error
	Delete(ctx context.Context, id int64) error
}
