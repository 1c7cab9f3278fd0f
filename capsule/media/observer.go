package media

import (
	"time"

	"github.com/dfryer1193/timecapsule/capsule/domain"
)

// Observer receives the outcome of every pipeline call.
type Observer interface {
	ObserveNormalize(duration time.Duration, result domain.SaveResult)
	ObserveCollage(duration time.Duration, cells int, result domain.CollageResult)
}

type nopObserver struct{}

func (nopObserver) ObserveNormalize(time.Duration, domain.SaveResult)         {}
func (nopObserver) ObserveCollage(time.Duration, int, domain.CollageResult) {}
