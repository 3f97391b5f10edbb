package availability

import (
	"time"

	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

// Resolve layers clinic hours, weekly windows, weekly breaks and date
// overrides into the bookable local intervals for date. The result is sorted
// and non-overlapping; empty means the doctor cannot be booked that day.
func Resolve(date time.Time, hours ClinicHours, rules DayRules) []Interval {
	date = timezone.Date(date)
	if hours.Closed || hours.Close <= hours.Open {
		return nil
	}
	lower, upper := hours.Open.On(date), hours.Close.On(date)

	var base []Interval
	for _, w := range rules.Windows {
		if w.Active && w.End > w.Start {
			base = append(base, w.on(date))
		}
	}
	if !rules.HasWeeklyWindows {
		base = []Interval{{Start: lower, End: upper}}
	}

	result := Merge(IntersectWithBounds(base, lower, upper))

	var breaks []Interval
	for _, b := range rules.Breaks {
		if b.Active && b.End > b.Start {
			breaks = append(breaks, b.on(date))
		}
	}
	result = Subtract(result, breaks)

	for _, o := range rules.Overrides {
		if !o.Active || o.IsAvailable {
			continue
		}
		if !o.hasInterval() {
			result = nil
			continue
		}
		result = Subtract(result, []Interval{o.interval(date)})
	}

	for _, o := range rules.Overrides {
		if o.Active && o.IsAvailable && o.hasInterval() {
			result = append(result, o.interval(date))
		}
	}

	return Merge(IntersectWithBounds(result, lower, upper))
}
