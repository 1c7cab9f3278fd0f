package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dfryer1193/timecapsule/capsule/media"
	"github.com/rs/zerolog/log"
)

// SelfieStore persists the normalized selfie and thumbnail for a date.
type SelfieStore interface {
	SaveSelfie(src []byte, dateKey string) domain.SaveResult
	DeleteSelfie(dateKey string) error
}

// SelfieService records one mood and photo per day of a capsule.
type SelfieService struct {
	capsules domain.CapsuleRepository
	entries  domain.EntryRepository
	selfies  SelfieStore
	store    domain.ManagedStore
	now      func() time.Time
}

func NewSelfieService(capsules domain.CapsuleRepository, entries domain.EntryRepository, selfies SelfieStore, store domain.ManagedStore) *SelfieService {
	return &SelfieService{
		capsules: capsules,
		entries:  entries,
		selfies:  selfies,
		store:    store,
		now:      time.Now,
	}
}

// SaveEntry stores src as the selfie for date and records the entry. The
// returned entry is nil unless the result is a domain.SaveSuccess.
func (s *SelfieService) SaveEntry(ctx context.Context, capsuleID int64, date, mood string, src []byte) (domain.SaveResult, *domain.Entry) {
	mood = strings.TrimSpace(mood)
	if mood == "" || len(strings.Fields(mood)) != 1 {
		return domain.NewSaveError(domain.InvalidInput, "Mood must be a single word"), nil
	}

	capsule, err := s.capsules.Get(ctx, capsuleID)
	if err != nil {
		return domain.NewSaveError(domain.InvalidInput, "Failed to save image: %v", err), nil
	}

	if !capsule.IsActive {
		return domain.NewSaveError(domain.InvalidInput, "Capsule %d is not active", capsuleID), nil
	}

	if _, err := ParseDateKey(date); err != nil {
		return domain.NewSaveError(domain.InvalidInput, "Failed to save image: %v", err), nil
	}
	if !InWindow(capsule, date) {
		return domain.NewSaveError(domain.InvalidInput, "Date %s is outside capsule %s to %s", date, capsule.StartDate, capsule.EndDate), nil
	}

	dayNumber := DayNumber(capsule.StartDate, date)
	existing, err := s.entries.GetByDate(ctx, capsuleID, date)
	switch {
	case err == nil:
		dayNumber = existing.DayNumber
	case !errors.Is(err, domain.ErrNotFound):
		return domain.NewSaveError(domain.KindUnknown, "Failed to save entry: %v", err), nil
	}

	result := s.selfies.SaveSelfie(src, date)
	saved, ok := result.(domain.SaveSuccess)
	if !ok {
		return result, nil
	}

	now := s.now().UTC()
	entry := &domain.Entry{
		CapsuleID:     capsuleID,
		Date:          date,
		DayNumber:     dayNumber,
		Mood:          mood,
		ImagePath:     saved.ImagePath,
		ImageFileName: saved.FileName,
		ThumbnailPath: saved.ThumbnailPath,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing != nil {
		entry.CreatedAt = existing.CreatedAt
	}

	if err := s.entries.Upsert(ctx, entry); err != nil {
		log.Error().Err(err).Int64("capsule", capsuleID).Str("date", date).Msg("Failed to record entry after saving selfie")
		return domain.NewSaveError(domain.KindUnknown, "Failed to save entry: %v", err), nil
	}

	log.Info().Int64("capsule", capsuleID).Str("date", date).Int("day", dayNumber).Msg("Saved entry")
	return saved, entry
}

// DeleteEntry removes the entry for date. Its files are deleted once no
// entry of any capsule references them.
func (s *SelfieService) DeleteEntry(ctx context.Context, capsuleID int64, date string) error {
	entry, err := s.entries.GetByDate(ctx, capsuleID, date)
	if err != nil {
		return err
	}
	if err := s.entries.Delete(ctx, capsuleID, date); err != nil {
		return err
	}

	refs, err := s.entries.CountByImagePath(ctx, entry.ImagePath)
	if err != nil {
		return err
	}
	if refs > 0 {
		log.Info().Int64("capsule", capsuleID).Str("path", entry.ImagePath).Int("refs", refs).Msg("Keeping selfie shared with another capsule")
		return nil
	}

	if err := s.selfies.DeleteSelfie(date); err != nil {
		return fmt.Errorf("failed to delete selfie files for %s: %w", date, err)
	}
	return nil
}

// Progress reports how many days of the capsule have an entry and the latest day filled.
func (s *SelfieService) Progress(ctx context.Context, capsuleID int64) (domain.Progress, error) {
	if _, err := s.capsules.Get(ctx, capsuleID); err != nil {
		return domain.Progress{}, err
	}

	var p domain.Progress
	var err error
	if p.Entries, err = s.entries.Count(ctx, capsuleID); err != nil {
		return domain.Progress{}, err
	}
	if p.LastDay, err = s.entries.MaxDayNumber(ctx, capsuleID); err != nil {
		return domain.Progress{}, err
	}
	return p, nil
}

// GetEntry returns the entry recorded for date.
func (s *SelfieService) GetEntry(ctx context.Context, capsuleID int64, date string) (*domain.Entry, error) {
	return s.entries.GetByDate(ctx, capsuleID, date)
}

// ListEntries returns the capsule's entries ordered by day number.
func (s *SelfieService) ListEntries(ctx context.Context, capsuleID int64) ([]*domain.Entry, error) {
	if _, err := s.capsules.Get(ctx, capsuleID); err != nil {
		return nil, err
	}
	return s.entries.ListForCapsule(ctx, capsuleID)
}

// StorageInfo reports the disk usage of the stored images.
func (s *SelfieService) StorageInfo() (domain.StorageInfo, error) {
	var info domain.StorageInfo
	var err error

	if info.SelfiesSize, info.SelfieCount, err = s.store.DirUsage(media.SelfiesDir); err != nil {
		return domain.StorageInfo{}, err
	}
	if info.ThumbnailsSize, _, err = s.store.DirUsage(media.ThumbnailsDir); err != nil {
		return domain.StorageInfo{}, err
	}
	if info.ExportsSize, _, err = s.store.DirUsage(media.ExportsDir); err != nil {
		return domain.StorageInfo{}, err
	}

	info.TotalSize = info.SelfiesSize + info.ThumbnailsSize + info.ExportsSize
	return info, nil
}

// CleanupOldFiles deletes selfies and thumbnails older than keepDays and
// returns how many files were removed.
func (s *SelfieService) CleanupOldFiles(keepDays int) (int, error) {
	if keepDays < 0 {
		return 0, fmt.Errorf("keepDays cannot be negative")
	}
	cutoff := s.now().AddDate(0, 0, -keepDays)

	deleted := 0
	for _, dir := range []string{media.SelfiesDir, media.ThumbnailsDir} {
		n, err := s.store.RemoveOlderThan(dir, cutoff)
		deleted += n
		if err != nil {
			return deleted, fmt.Errorf("failed to clean up %s: %w", dir, err)
		}
	}

	log.Info().Int("deleted", deleted).Int("keepDays", keepDays).Msg("Cleaned up old selfies")
	return deleted, nil
}
