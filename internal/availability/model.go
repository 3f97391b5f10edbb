package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

// WeeklyRule is a recurring interval on one weekday. It is used both for
// "doctor is in" windows and for breaks carved out of them.
type WeeklyRule struct {
	ID        uuid.UUID          `json:"id"`
	DoctorID  uuid.UUID          `json:"doctor_id"`
	DayOfWeek time.Weekday       `json:"day_of_week"`
	Start     timezone.TimeOfDay `json:"start"`
	End       timezone.TimeOfDay `json:"end"`
	Active    bool               `json:"active"`
}

func (r WeeklyRule) on(date time.Time) Interval {
	return Interval{Start: r.Start.On(date), End: r.End.On(date)}
}

// Override is a date-specific exception. A blocking override without Start/End
// closes the whole date; an available override always carries both and adds
// time regardless of the weekly rules.
type Override struct {
	ID          uuid.UUID           `json:"id"`
	DoctorID    uuid.UUID           `json:"doctor_id"`
	Date        time.Time           `json:"date"`
	Start       *timezone.TimeOfDay `json:"start,omitempty"`
	End         *timezone.TimeOfDay `json:"end,omitempty"`
	IsAvailable bool                `json:"is_available"`
	Active      bool                `json:"active"`
}

func (o Override) hasInterval() bool {
	return o.Start != nil && o.End != nil
}

func (o Override) interval(date time.Time) Interval {
	return Interval{Start: o.Start.On(date), End: o.End.On(date)}
}

// Rules is a doctor's complete rule set.
type Rules struct {
	Windows   []WeeklyRule `json:"windows"`
	Breaks    []WeeklyRule `json:"breaks"`
	Overrides []Override   `json:"overrides"`
}

// DayRules is the slice of a doctor's rules that applies to one date.
type DayRules struct {
	// HasWeeklyWindows is true when the doctor has any active weekly window on
	// any weekday. Without one the doctor follows the clinic's hours.
	HasWeeklyWindows bool
	Windows          []WeeklyRule
	Breaks           []WeeklyRule
	Overrides        []Override
}

// ClinicHours are the clinic's opening hours for one weekday.
type ClinicHours struct {
	Open   timezone.TimeOfDay
	Close  timezone.TimeOfDay
	Closed bool
}

// ForDate filters a full rule set down to what applies on date.
func (r Rules) ForDate(date time.Time) DayRules {
	date = timezone.Date(date)
	day := date.Weekday()

	var out DayRules
	for _, w := range r.Windows {
		if !w.Active {
			continue
		}
		out.HasWeeklyWindows = true
		if w.DayOfWeek == day {
			out.Windows = append(out.Windows, w)
		}
	}
	for _, b := range r.Breaks {
		if b.Active && b.DayOfWeek == day {
			out.Breaks = append(out.Breaks, b)
		}
	}
	for _, o := range r.Overrides {
		if o.Active && timezone.Date(o.Date).Equal(date) {
			out.Overrides = append(out.Overrides, o)
		}
	}
	return out
}
