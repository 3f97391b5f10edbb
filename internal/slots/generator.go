package slots

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

// Duration is the fixed length of every appointment.
const Duration = 30 * time.Minute

// Slot is a bookable start, as an instant and as the clinic's wall clock label.
type Slot struct {
	UTC   time.Time `json:"utc"`
	Local string    `json:"local"`
}

// Query describes one day of slot generation.
type Query struct {
	// Intervals are the doctor's bookable local intervals for the day.
	Intervals []availability.Interval
	Location  *time.Location
	Now       time.Time
	// Step defaults to Duration.
	Step time.Duration

	DoctorBusy []Booking
	// PatientBusy is checked only when non-nil, i.e. when a patient asks.
	PatientBusy []Booking
	// Exclude is left out of both busy lists (an appointment being moved).
	Exclude uuid.UUID
}

// Generate walks every interval in fixed steps and returns the starts that
// exist in the clinic zone, lie after now and clash with nobody. Results are
// ordered by UTC instant.
func Generate(q Query) []Slot {
	step := q.Step
	if step <= 0 {
		step = Duration
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	var out []Slot
	for _, in := range q.Intervals {
		for start := in.Start; !start.Add(step).After(in.End); start = start.Add(step) {
			utc, ok := timezone.LocalToUTCIn(start, loc)
			if !ok {
				continue
			}
			if !utc.After(q.Now) {
				continue
			}
			if HasConflict(q.DoctorBusy, utc, step, q.Exclude) {
				continue
			}
			if q.PatientBusy != nil && HasConflict(q.PatientBusy, utc, step, q.Exclude) {
				continue
			}
			out = append(out, Slot{UTC: utc, Local: start.Format("15:04")})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UTC.Before(out[j].UTC)
	})
	return out
}

// Fits reports whether an appointment starting at startUTC lies entirely
// inside one of the day's bookable local intervals.
func Fits(intervals []availability.Interval, loc *time.Location, startUTC time.Time, duration time.Duration) bool {
	if loc == nil {
		loc = time.UTC
	}
	local := timezone.UTCToLocalIn(startUTC, loc)
	return availability.AnyCovers(intervals, availability.Interval{Start: local, End: local.Add(duration)})
}
