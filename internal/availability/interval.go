package availability

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) range of naive local date-times.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Covers reports whether other lies fully inside i.
func (i Interval) Covers(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

func (i Interval) overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// IntersectWithBounds clips every interval to [lower, upper) and drops the
// ones left empty.
func IntersectWithBounds(intervals []Interval, lower, upper time.Time) []Interval {
	out := make([]Interval, 0, len(intervals))
	for _, in := range intervals {
		start, end := in.Start, in.End
		if start.Before(lower) {
			start = lower
		}
		if end.After(upper) {
			end = upper
		}
		clipped := Interval{Start: start, End: end}
		if !clipped.Empty() {
			out = append(out, clipped)
		}
	}
	return out
}

// Merge sorts by start then end and folds touching or overlapping intervals.
// The result is ascending and non-overlapping.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, 0, len(intervals))
	for _, in := range intervals {
		if !in.Empty() {
			sorted = append(sorted, in)
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	var merged []Interval
	for _, in := range sorted {
		if n := len(merged); n > 0 && !in.Start.After(merged[n-1].End) {
			if in.End.After(merged[n-1].End) {
				merged[n-1].End = in.End
			}
			continue
		}
		merged = append(merged, in)
	}
	return merged
}

// Subtract removes every blocker from source, splitting intervals a blocker
// lands inside of.
func Subtract(source, blockers []Interval) []Interval {
	result := append([]Interval(nil), source...)
	for _, b := range Merge(blockers) {
		next := make([]Interval, 0, len(result))
		for _, s := range result {
			if !s.overlaps(b) {
				next = append(next, s)
				continue
			}
			if b.Start.After(s.Start) {
				next = append(next, Interval{Start: s.Start, End: b.Start})
			}
			if b.End.Before(s.End) {
				next = append(next, Interval{Start: b.End, End: s.End})
			}
		}
		result = next
	}
	return result
}

// AnyCovers reports whether some interval fully contains candidate.
func AnyCovers(intervals []Interval, candidate Interval) bool {
	for _, in := range intervals {
		if in.Covers(candidate) {
			return true
		}
	}
	return false
}
