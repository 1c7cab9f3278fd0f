package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/dfryer1193/timecapsule/capsule/domain"
)

func newTestEntry(capsuleID int64, date string, day int) *domain.Entry {
	return &domain.Entry{
		CapsuleID:     capsuleID,
		Date:          date,
		DayNumber:     day,
		Mood:          "happy",
		ImagePath:     "selfies/" + date + ".jpg",
		ImageFileName: date + ".jpg",
		ThumbnailPath: "thumbnails/thumb_" + date + ".jpg",
	}
}

func setupCapsule(t *testing.T) (*SQLiteEntryRepository, int64) {
	t.Helper()
	sqlDB := setupTestDB(t)
	id, err := NewCapsuleRepository(sqlDB).Create(context.Background(), &domain.Capsule{
		Name:      "January 2024",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-30",
	})
	if err != nil {
		t.Fatalf("Failed to create capsule: %v", err)
	}
	return NewEntryRepository(sqlDB), id
}

func TestEntryRepository_Upsert(t *testing.T) {
	repo, capsuleID := setupCapsule(t)
	ctx := context.Background()

	e := newTestEntry(capsuleID, "2024-01-05", 5)
	if err := repo.Upsert(ctx, e); err != nil {
		t.Fatalf("Upsert() insert error = %v", err)
	}
	if e.ID == 0 {
		t.Fatal("Upsert() did not set ID")
	}
	firstID := e.ID

	replacement := newTestEntry(capsuleID, "2024-01-05", 5)
	replacement.Mood = "tired"
	replacement.ThumbnailPath = ""
	if err := repo.Upsert(ctx, replacement); err != nil {
		t.Fatalf("Upsert() update error = %v", err)
	}
	if replacement.ID != firstID {
		t.Errorf("Upsert() replaced row id %d with %d", firstID, replacement.ID)
	}

	got, err := repo.GetByDate(ctx, capsuleID, "2024-01-05")
	if err != nil {
		t.Fatalf("GetByDate() error = %v", err)
	}
	if got.Mood != "tired" {
		t.Errorf("Mood = %q, want %q", got.Mood, "tired")
	}
	if got.ThumbnailPath != "" {
		t.Errorf("ThumbnailPath = %q, want empty", got.ThumbnailPath)
	}
	if got.DayNumber != 5 {
		t.Errorf("DayNumber = %d, want 5", got.DayNumber)
	}

	n, err := repo.Count(ctx, capsuleID)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestEntryRepository_UpsertValidation(t *testing.T) {
	repo, capsuleID := setupCapsule(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, nil); err == nil {
		t.Error("Upsert(nil) should fail")
	}
	if err := repo.Upsert(ctx, newTestEntry(capsuleID, "", 1)); err == nil {
		t.Error("Upsert() without date should fail")
	}
	if err := repo.Upsert(ctx, newTestEntry(capsuleID+100, "2024-01-01", 1)); err == nil {
		t.Error("Upsert() for unknown capsule should fail")
	}
}

func TestEntryRepository_ListForCapsule(t *testing.T) {
	repo, capsuleID := setupCapsule(t)
	ctx := context.Background()

	for _, tt := range []struct {
		date string
		day  int
	}{
		{"2024-01-10", 10},
		{"2024-01-02", 2},
		{"2024-01-30", 30},
	} {
		if err := repo.Upsert(ctx, newTestEntry(capsuleID, tt.date, tt.day)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	entries, err := repo.ListForCapsule(ctx, capsuleID)
	if err != nil {
		t.Fatalf("ListForCapsule() error = %v", err)
	}

	want := []int{2, 10, 30}
	if len(entries) != len(want) {
		t.Fatalf("ListForCapsule() returned %d entries, want %d", len(entries), len(want))
	}
	for i, e := range entries {
		if e.DayNumber != want[i] {
			t.Errorf("entries[%d].DayNumber = %d, want %d", i, e.DayNumber, want[i])
		}
	}

	maxDay, err := repo.MaxDayNumber(ctx, capsuleID)
	if err != nil {
		t.Fatalf("MaxDayNumber() error = %v", err)
	}
	if maxDay != 30 {
		t.Errorf("MaxDayNumber() = %d, want 30", maxDay)
	}

	empty, err := repo.ListForCapsule(ctx, capsuleID+1)
	if err != nil {
		t.Fatalf("ListForCapsule() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListForCapsule() for empty capsule = %d entries", len(empty))
	}
}

func TestEntryRepository_MaxDayNumberEmpty(t *testing.T) {
	repo, capsuleID := setupCapsule(t)

	maxDay, err := repo.MaxDayNumber(context.Background(), capsuleID)
	if err != nil {
		t.Fatalf("MaxDayNumber() error = %v", err)
	}
	if maxDay != 0 {
		t.Errorf("MaxDayNumber() = %d, want 0", maxDay)
	}
}

func TestEntryRepository_Delete(t *testing.T) {
	repo, capsuleID := setupCapsule(t)
	ctx := context.Background()

	if err := repo.Upsert(ctx, newTestEntry(capsuleID, "2024-01-03", 3)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := repo.Delete(ctx, capsuleID, "2024-01-03"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByDate(ctx, capsuleID, "2024-01-03"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetByDate() after delete error = %v, want ErrNotFound", err)
	}
	if err := repo.Delete(ctx, capsuleID, "2024-01-03"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestEntryRepository_CountByImagePath(t *testing.T) {
	sqlDB := setupTestDB(t)
	ctx := context.Background()
	capsules := NewCapsuleRepository(sqlDB)
	repo := NewEntryRepository(sqlDB)

	var ids []int64
	for _, start := range []string{"2024-01-01", "2024-01-10"} {
		id, err := capsules.Create(ctx, &domain.Capsule{Name: "Capsule " + start, StartDate: start, EndDate: "2024-02-08"})
		if err != nil {
			t.Fatalf("Failed to create capsule: %v", err)
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		if err := repo.Upsert(ctx, newTestEntry(id, "2024-01-20", 20)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	tests := []struct {
		name string
		path string
		want int
	}{
		{"shared by both capsules", "selfies/2024-01-20.jpg", 2},
		{"unreferenced", "selfies/2024-01-21.jpg", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := repo.CountByImagePath(ctx, tt.path)
			if err != nil {
				t.Fatalf("CountByImagePath() error = %v", err)
			}
			if n != tt.want {
				t.Errorf("CountByImagePath() = %d, want %d", n, tt.want)
			}
		})
	}

	if err := repo.Delete(ctx, ids[1], "2024-01-20"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	n, err := repo.CountByImagePath(ctx, "selfies/2024-01-20.jpg")
	if err != nil {
		t.Fatalf("CountByImagePath() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountByImagePath() after delete = %d, want 1", n)
	}
}
