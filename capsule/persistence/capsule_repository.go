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

var _ domain.CapsuleRepository = (*SQLiteCapsuleRepository)(nil)

// SQLiteCapsuleRepository implements domain.CapsuleRepository using SQLite
type SQLiteCapsuleRepository struct {
	db *sql.DB
}

func NewCapsuleRepository(sqlDB *sql.DB) *SQLiteCapsuleRepository {
	return &SQLiteCapsuleRepository{
		db: sqlDB,
	}
}

const capsuleColumns = `id, name, start_date, end_date, is_active, created_at, exported_at, export_path`

const insertCapsuleQuery = `
	INSERT INTO time_capsules (name, start_date, end_date, is_active, created_at)
	VALUES (?, ?, ?, 1, ?)
`

// Create deactivates every capsule and inserts c as the only active one.
func (r *SQLiteCapsuleRepository) Create(ctx context.Context, c *domain.Capsule) (int64, error) {
	if c == nil {
		return 0, fmt.Errorf("capsule cannot be nil")
	}
	if c.Name == "" {
		return 0, fmt.Errorf("capsule name cannot be empty")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	err := db.RunInTransaction(ctx, r.db, func(txCtx context.Context) error {
		if err := r.DeactivateAll(txCtx); err != nil {
			return err
		}

		executor := db.GetExecutor(txCtx, r.db)
		res, err := executor.ExecContext(txCtx, insertCapsuleQuery,
			c.Name,
			c.StartDate,
			c.EndDate,
			c.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert capsule: %w", err)
		}

		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read capsule id: %w", err)
		}
		c.ID = id
		c.IsActive = true
		return nil
	})
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

const getCapsuleQuery = `SELECT ` + capsuleColumns + ` FROM time_capsules WHERE id = ?`

func (r *SQLiteCapsuleRepository) Get(ctx context.Context, id int64) (*domain.Capsule, error) {
	row := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getCapsuleQuery, id)
	c, err := scanCapsule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("capsule %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capsule: %w", err)
	}
	return c, nil
}

const getActiveCapsuleQuery = `
	SELECT ` + capsuleColumns + ` FROM time_capsules
	WHERE is_active = 1
	ORDER BY created_at DESC
	LIMIT 1
`

// GetActive returns the active capsule, or an error wrapping domain.ErrNotFound.
func (r *SQLiteCapsuleRepository) GetActive(ctx context.Context) (*domain.Capsule, error) {
	row := db.GetExecutor(ctx, r.db).QueryRowContext(ctx, getActiveCapsuleQuery)
	c, err := scanCapsule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("active capsule: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active capsule: %w", err)
	}
	return c, nil
}

const listCapsulesQuery = `SELECT ` + capsuleColumns + ` FROM time_capsules ORDER BY created_at DESC, id DESC`

// List returns every capsule, newest first.
func (r *SQLiteCapsuleRepository) List(ctx context.Context) ([]*domain.Capsule, error) {
	rows, err := db.GetExecutor(ctx, r.db).QueryContext(ctx, listCapsulesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list capsules: %w", err)
	}
	defer rows.Close()

	capsules := make([]*domain.Capsule, 0)
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capsule row: %w", err)
		}
		capsules = append(capsules, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating capsule rows: %w", err)
	}
	return capsules, nil
}

const deactivateAllQuery = `UPDATE time_capsules SET is_active = 0 WHERE is_active = 1`

func (r *SQLiteCapsuleRepository) DeactivateAll(ctx context.Context) error {
	if _, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deactivateAllQuery); err != nil {
		return fmt.Errorf("failed to deactivate capsules: %w", err)
	}
	return nil
}

const markExportedQuery = `UPDATE time_capsules SET exported_at = ?, export_path = ? WHERE id = ?`

func (r *SQLiteCapsuleRepository) MarkExported(ctx context.Context, id int64, exportPath string, at time.Time) error {
	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, markExportedQuery, at, exportPath, id)
	if err != nil {
		return fmt.Errorf("failed to mark capsule exported: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("capsule %d", id))
}

const deleteCapsuleQuery = `DELETE FROM time_capsules WHERE id = ?`

// Delete removes the capsule; its entries go with it through the foreign key.
func (r *SQLiteCapsuleRepository) Delete(ctx context.Context, id int64) error {
	res, err := db.GetExecutor(ctx, r.db).ExecContext(ctx, deleteCapsuleQuery, id)
	if err != nil {
		return fmt.Errorf("failed to delete capsule: %w", err)
	}
	return requireAffected(res, fmt.Sprintf("capsule %d", id))
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, domain.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// capsuleRow is a private struct used to scan database rows
type capsuleRow struct {
	ID         int64          `db:"id"`
	Name       string         `db:"name"`
	StartDate  string         `db:"start_date"`
	EndDate    string         `db:"end_date"`
	IsActive   bool           `db:"is_active"`
	CreatedAt  sql.NullTime   `db:"created_at"`
	ExportedAt sql.NullTime   `db:"exported_at"`
	ExportPath sql.NullString `db:"export_path"`
}

func scanCapsule(s scanner) (*domain.Capsule, error) {
	var row capsuleRow
	err := s.Scan(
		&row.ID,
		&row.Name,
		&row.StartDate,
		&row.EndDate,
		&row.IsActive,
		&row.CreatedAt,
		&row.ExportedAt,
		&row.ExportPath,
	)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (cr *capsuleRow) toDomain() *domain.Capsule {
	c := &domain.Capsule{
		ID:         cr.ID,
		Name:       cr.Name,
		StartDate:  cr.StartDate,
		EndDate:    cr.EndDate,
		IsActive:   cr.IsActive,
		ExportPath: cr.ExportPath.String,
	}

	if cr.CreatedAt.Valid {
		c.CreatedAt = cr.CreatedAt.Time
	}
	if cr.ExportedAt.Valid {
		c.ExportedAt = cr.ExportedAt.Time
	}
	return c
}
