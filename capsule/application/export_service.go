package application

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/dfryer1193/timecapsule/capsule/media"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const exportTimestampLayout = "20060102_150405"

// CollageGenerator composites ordered images into a titled collage.
type CollageGenerator interface {
	GenerateCollage(ctx context.Context, imagePaths []string, output string, title string) domain.CollageResult
}

// ExportService turns a capsule's entries into a collage file.
type ExportService struct {
	capsules  domain.CapsuleRepository
	entries   domain.EntryRepository
	collages  CollageGenerator
	store     domain.ManagedStore
	exporting *semaphore.Weighted
	now       func() time.Time

	// Service lifecycle context - cancelled when Close() is called
	ctx    context.Context
	cancel context.CancelFunc
	wg     *sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewExportService bounds concurrent exports to maxConcurrent, since each
// one holds a full-size canvas in memory.
func NewExportService(capsules domain.CapsuleRepository, entries domain.EntryRepository, collages CollageGenerator, store domain.ManagedStore, maxConcurrent int) *ExportService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &ExportService{
		capsules:  capsules,
		entries:   entries,
		collages:  collages,
		store:     store,
		exporting: semaphore.NewWeighted(int64(maxConcurrent)),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		wg:        &sync.WaitGroup{},
	}
}

// Close cancels in-flight exports and waits for them to return.
func (s *ExportService) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// ExportCapsule renders every stored selfie of the capsule, in day order,
// into exports/ and records the export on the capsule.
func (s *ExportService) ExportCapsule(ctx context.Context, capsuleID int64) domain.ExportResult {
	if !s.begin() {
		return domain.NewExportError(domain.Cancelled, "Export failed: service is shutting down")
	}
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.ctx, cancel)
	defer stop()

	if err := s.exporting.Acquire(ctx, 1); err != nil {
		return domain.NewExportError(domain.Cancelled, "Export failed: %v", err)
	}
	defer s.exporting.Release(1)

	capsule, err := s.capsules.Get(ctx, capsuleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewExportError(domain.InvalidInput, "Capsule %d not found", capsuleID)
		}
		return domain.NewExportError(domain.KindUnknown, "Export failed: %v", err)
	}

	entries, err := s.entries.ListForCapsule(ctx, capsuleID)
	if err != nil {
		return domain.NewExportError(domain.KindUnknown, "Export failed: %v", err)
	}
	if len(entries) == 0 {
		return domain.NewExportError(domain.EmptyInput, "No entries to export")
	}

	imagePaths := s.existingImages(entries)
	if len(imagePaths) == 0 {
		return domain.NewExportError(domain.NoValidImages, "No valid images found")
	}

	exportedAt := s.now()
	fileName := ExportFileName(capsule.Name, exportedAt)
	output := path.Join(media.ExportsDir, fileName)
	if path.Dir(output) != media.ExportsDir {
		return domain.NewExportError(domain.InvalidInput, "Export failed: capsule name %q does not form a file name", capsule.Name)
	}

	switch r := s.collages.GenerateCollage(ctx, imagePaths, output, capsule.Name).(type) {
	case domain.CollageSuccess:
		if err := s.capsules.MarkExported(ctx, capsuleID, r.Path, exportedAt.UTC()); err != nil {
			log.Error().Err(err).Int64("capsule", capsuleID).Str("path", r.Path).Msg("Failed to record export")
		}
		log.Info().Int64("capsule", capsuleID).Str("path", r.Path).Int("images", len(imagePaths)).Ints("placeholders", r.Placeholders).Msg("Exported capsule")
		return domain.ExportSuccess{
			Path:         r.Path,
			FileName:     fileName,
			ImageCount:   len(imagePaths),
			Placeholders: r.Placeholders,
		}
	case domain.CollageError:
		log.Error().Err(r.Failure).Int64("capsule", capsuleID).Msg("Failed to export capsule")
		return domain.ExportError{Failure: r.Failure}
	default:
		return domain.NewExportError(domain.KindUnknown, "Export failed: unexpected collage result %T", r)
	}
}

func (s *ExportService) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

// existingImages returns the image paths of entries, ordered by day, that are still on disk.
func (s *ExportService) existingImages(entries []*domain.Entry) []string {
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b *domain.Entry) int {
		return a.DayNumber - b.DayNumber
	})

	paths := make([]string, 0, len(sorted))
	for _, e := range sorted {
		if s.store.Exists(e.ImagePath) {
			paths = append(paths, e.ImagePath)
			continue
		}
		log.Warn().Str("path", e.ImagePath).Int("day", e.DayNumber).Msg("Skipping entry without image")
	}
	return paths
}

// ExportFileName is TimeCapsule_<name>_<yyyyMMdd_HHmmss>.jpg. Every rune of
// name other than a letter, digit, '-' or '_' becomes an underscore.
func ExportFileName(capsuleName string, at time.Time) string {
	safe := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, capsuleName)
	return fmt.Sprintf("TimeCapsule_%s_%s.jpg", safe, at.Format(exportTimestampLayout))
}

// Stats summarizes the collages stored under exports/.
func (s *ExportService) Stats() (domain.ExportStats, error) {
	names, err := s.store.ListFiles(media.ExportsDir)
	if err != nil {
		return domain.ExportStats{}, err
	}

	var stats domain.ExportStats
	for _, name := range names {
		if !strings.HasSuffix(name, ".jpg") {
			continue
		}
		size, modTime, err := s.store.Stat(path.Join(media.ExportsDir, name))
		if err != nil {
			continue
		}
		stats.TotalExports++
		stats.TotalSizeBytes += size
		if modTime.After(stats.LastExport) {
			stats.LastExport = modTime
		}
	}
	return stats, nil
}

// CleanupOldExports deletes exports older than keepDays and returns how many were removed.
func (s *ExportService) CleanupOldExports(keepDays int) (int, error) {
	if keepDays < 0 {
		return 0, fmt.Errorf("keepDays cannot be negative")
	}

	deleted, err := s.store.RemoveOlderThan(media.ExportsDir, s.now().AddDate(0, 0, -keepDays))
	if err != nil {
		return deleted, fmt.Errorf("failed to clean up exports: %w", err)
	}
	log.Info().Int("deleted", deleted).Int("keepDays", keepDays).Msg("Cleaned up old exports")
	return deleted, nil
}
