package application

import (
	"fmt"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
)

// DateKey formats t as a storage date key in t's own location.
func DateKey(t time.Time) string {
	return t.Format(domain.DateLayout)
}

// ParseDateKey parses a yyyy-mm-dd key as a UTC calendar date.
func ParseDateKey(key string) (time.Time, error) {
	t, err := time.Parse(domain.DateLayout, key)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", key, err)
	}
	return t, nil
}

// DayNumber is the 1-based day of date within a capsule starting at start,
// clamped to 1..CapsuleLength. Unparseable dates count as day 1.
func DayNumber(start, date string) int {
	s, err := ParseDateKey(start)
	if err != nil {
		return 1
	}
	d, err := ParseDateKey(date)
	if err != nil {
		return 1
	}

	days := int(d.Sub(s).Hours()/24) + 1
	return min(max(days, 1), domain.CapsuleLength)
}

// CapsuleWindow returns the first and last date keys of a capsule starting on start.
func CapsuleWindow(start time.Time) (string, string) {
	return DateKey(start), DateKey(start.AddDate(0, 0, domain.CapsuleLength-1))
}

// InWindow reports whether date lies between the capsule's start and end, inclusive.
func InWindow(c *domain.Capsule, date string) bool {
	// yyyy-mm-dd keys sort chronologically
	return date >= c.StartDate && date <= c.EndDate
}

// MonthYear is the default capsule name for t, e.g. "January 2024".
func MonthYear(t time.Time) string {
	return t.Format("January 2006")
}
