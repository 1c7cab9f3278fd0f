package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dfryer1193/timecapsule/capsule/domain"
	"github.com/rs/zerolog/log"
)

// CapsuleService manages the lifecycle of capsules.
type CapsuleService struct {
	repo domain.CapsuleRepository
	now  func() time.Time

	// serializes get-or-create so concurrent callers share one new capsule
	mu sync.Mutex
}

func NewCapsuleService(repo domain.CapsuleRepository) *CapsuleService {
	return &CapsuleService{
		repo: repo,
		now:  time.Now,
	}
}

// GetOrCreateActive returns the active capsule, starting a new one named
// after the current month when none is active.
func (s *CapsuleService) GetOrCreateActive(ctx context.Context) (*domain.Capsule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active, err := s.repo.GetActive(ctx)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	return s.create(ctx, MonthYear(s.now()))
}

// Create starts a new 30-day capsule beginning today and makes it the only active one.
func (s *CapsuleService) Create(ctx context.Context, name string) (*domain.Capsule, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("capsule name cannot be empty")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(ctx, name)
}

func (s *CapsuleService) create(ctx context.Context, name string) (*domain.Capsule, error) {
	now := s.now()
	start, end := CapsuleWindow(now)
	c := &domain.Capsule{
		Name:      name,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now.UTC(),
	}

	if _, err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create capsule: %w", err)
	}

	log.Info().Int64("capsule", c.ID).Str("name", c.Name).Str("start", start).Str("end", end).Msg("Started capsule")
	return c, nil
}

func (s *CapsuleService) Get(ctx context.Context, id int64) (*domain.Capsule, error) {
	return s.repo.Get(ctx, id)
}

func (s *CapsuleService) List(ctx context.Context) ([]*domain.Capsule, error) {
	return s.repo.List(ctx)
}

// Delete removes the capsule and its entries. Stored images are left for
// the age-based cleanup, since date-keyed files may outlive a capsule.
func (s *CapsuleService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Info().Int64("capsule", id).Msg("Deleted capsule")
	return nil
}

// validateName rejects names that could be read as a path.
func validateName(name string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("capsule name %q cannot contain path separators", name)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("capsule name %q cannot contain dot segments", name)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("capsule name %q cannot contain control characters", name)
		}
	}
	return nil
}
