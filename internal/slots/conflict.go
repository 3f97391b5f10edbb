package slots

import (
	"time"

	"github.com/google/uuid"
)

// Booking is an existing appointment as seen by the conflict check.
type Booking struct {
	ID    uuid.UUID
	Start time.Time
	End   time.Time
	// Blocking is true only for Scheduled appointments.
	Blocking bool
}

// HasConflict reports whether [start, start+duration) overlaps any blocking
// booking other than exclude. Intervals are half-open, so back-to-back
// appointments do not conflict.
func HasConflict(existing []Booking, start time.Time, duration time.Duration, exclude uuid.UUID) bool {
	end := start.Add(duration)
	for _, b := range existing {
		if !b.Blocking {
			continue
		}
		if exclude != uuid.Nil && b.ID == exclude {
			continue
		}
		if b.Start.Before(end) && start.Before(b.End) {
			return true
		}
	}
	return false
}
