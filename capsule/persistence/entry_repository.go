package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dfryer1193/timecapsule/shared/db"
)

var _ domain.EntryRepository = (*SQLiteEntryRepository)(nil)

// SQLiteEntryRepository implements domain.EntryRepository using SQLite
type SQLiteEntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(sqlDB *sql.DB) *SQLiteEntryRepository {
	return &SQLiteEntryRepository{
		db: sqlDB,
	}
}

const entryColumns = `id, capsule_id, date, day_number, mood, image_path, image_file_name, thumbnail_path, created_at, updated_at`

const upsertEntryQuery = `
	INSERT INTO capsule_entries (capsule_id, date, day_number, mood, image_path, image_file_name, thumbnail_path, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(capsule_id, date) DO UPDATE SET
		day_number = excluded.day_number,
		mood = excluded.mood,
		image_path = excluded.image_path,
		image_file_name = excluded.image_file_name,
		thumbnail_path = excluded.thumbnail_path,
		updated_at = excluded.updated_at,
		created_at = COALESCE(capsule_entries.created_at, excluded.created_at)
	RETURNING id, created_at
`

// Upsert stores e, replacing any entry for the same capsule and date.
// e.ID and e.CreatedAt are updated from the stored row.
func (r *SQLiteEntryRepository) Upsert(ctx context.Context, e *domain.Entry) error {
	if e == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if e.Date == "" {
		return fmt.Errorf("entry date cannot be empty")
	}

	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = now
	}

	var thumbnail any
	if e.ThumbnailPath != "" {
		thumbnail = e.ThumbnailPath
	}

	var createdAt sql.NullTime
	err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, upsertEntryQuery,
		e.CapsuleID,
		e.Date,
		e.DayNumber,
		e.Mood,
		e.ImagePath,
		e.ImageFileName,
		thumbnail,
		e.CreatedAt,
		e.UpdatedAt,
	).Scan(&e.ID, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert entry: %w", err)
	}

	if createdAt.Valid {
		e.CreatedAt = createdAt.Time
	}
	return nil
}

const getEntryByDateQuery = `SELECT ` + entryColumns + ` FROM capsule_entries WHERE capsule_id = ? AND date = ?`

func (r *SQLiteEntryRepository) GetByDate(ctx context.Context, capsuleID int64, date string) (*domain.Entry, error) {
	row := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getEntryByDateQuery, capsuleID, date)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %s in capsule %d: %w", date, capsuleID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

const listEntriesQuery = `
	SELECT ` + entryColumns + ` FROM capsule_entries
	WHERE capsule_id = ?
	ORDER BY day_number ASC, date ASC
`

func (r *SQLiteEntryRepository) ListForCapsule(ctx context.Context, capsuleID int64) ([]*domain.Entry, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listEntriesQuery, capsuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry row: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entry rows: %w", err)
	}
	return entries, nil
}

const deleteEntryQuery = `DELETE FROM capsule_entries WHERE capsule_id = ? AND date = ?`

func (r *SQLiteEntryRepository) Delete(ctx context.Context, capsuleID int64, date string) error {
	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deleteEntryQuery, capsuleID, date)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("entry %s in capsule %d", date, capsuleID))
}

const countEntriesQuery = `SELECT COUNT(*) FROM capsule_entries WHERE capsule_id = ?`

func (r *SQLiteEntryRepository) Count(ctx context.Context, capsuleID int64) (int, error) {
	var n int
	if err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, countEntriesQuery, capsuleID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return n, nil
}

const maxDayNumberQuery = `SELECT COALESCE(MAX(day_number), 0) FROM capsule_entries WHERE capsule_id = ?`

// MaxDayNumber returns the highest day recorded for the capsule, or 0 when it has none.
func (r *SQLiteEntryRepository) MaxDayNumber(ctx context.Context, capsuleID int64) (int, error) {
	var n int
	if err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, maxDayNumberQuery, capsuleID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to get max day number: %w", err)
	}
	return n, nil
}

const countByImagePathQuery = `SELECT COUNT(*) FROM capsule_entries WHERE image_path = ?`

func (r *SQLiteEntryRepository) CountByImagePath(ctx context.Context, imagePath string) (int, error) {
	var n int
	if err := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, countByImagePathQuery, imagePath).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries for image: %w", err)
	}
	return n, nil
}

// entryRow is a private struct used to scan database rows
type entryRow struct {
	ID            int64          `db:"id"`
	CapsuleID     int64          `db:"capsule_id"`
	Date          string         `db:"date"`
	DayNumber     int            `db:"day_number"`
	Mood          string         `db:"mood"`
	ImagePath     string         `db:"image_path"`
	ImageFileName string         `db:"image_file_name"`
	ThumbnailPath sql.NullString `db:"thumbnail_path"`
	CreatedAt     sql.NullTime   `db:"created_at"`
	UpdatedAt     sql.NullTime   `db:"updated_at"`
}

func scanEntry(s scanner) (*domain.Entry, error) {
	var row entryRow
	err := s.Scan(
		&row.ID,
		&row.CapsuleID,
		&row.Date,
		&row.DayNumber,
		&row.Mood,
		&row.ImagePath,
		&row.ImageFileName,
		&row.ThumbnailPath,
		&row.CreatedAt,
		&row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (er *entryRow) toDomain() *domain.Entry {
	e := &domain.Entry{
		ID:            er.ID,
		CapsuleID:     er.CapsuleID,
		Date:          er.Date,
		DayNumber:     er.DayNumber,
		Mood:          er.Mood,
		ImagePath:     er.ImagePath,
		ImageFileName: er.ImageFileName,
		ThumbnailPath: er.ThumbnailPath.String,
	}

	if er.CreatedAt.Valid {
		e.CreatedAt = er.CreatedAt.Time
	}
	if er.UpdatedAt.Valid {
		e.UpdatedAt = er.UpdatedAt.Time
	}
	return e
}
