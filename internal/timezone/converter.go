// Package timezone converts between clinic wall-clock time and UTC instants.
//
// A naive local date-time is a time.Time in time.UTC whose wall clock fields
// hold the local reading; it never denotes an instant on its own.
package timezone

import (
	"sort"
	"strings"
	"time"
	_ "time/tzdata"
)

// Resolve returns the IANA location for id, falling back to UTC when the
// identifier is empty or unknown.
func Resolve(id string) *time.Location {
	id = strings.TrimSpace(id)
	if id == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(id)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Naive strips the location from t, keeping its wall clock reading.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// Date returns the naive midnight of t's wall clock date.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LocalToUTC maps a naive local date-time in zone tzID to a UTC instant.
// ok is false when the wall time does not exist (DST forward gap). When the
// wall time occurs twice (DST fall-back) the earlier instant is returned.
func LocalToUTC(local time.Time, tzID string) (utc time.Time, ok bool) {
	return LocalToUTCIn(local, Resolve(tzID))
}

func LocalToUTCIn(local time.Time, loc *time.Location) (time.Time, bool) {
	wall := Naive(local)

	// Any offset valid for this wall time is in effect within a day of it.
	offsets := map[int]struct{}{}
	for _, shift := range []time.Duration{-24 * time.Hour, 0, 24 * time.Hour} {
		_, off := wall.Add(shift).In(loc).Zone()
		offsets[off] = struct{}{}
	}

	var candidates []time.Time
	for off := range offsets {
		instant := wall.Add(-time.Duration(off) * time.Second)
		if Naive(instant.In(loc)).Equal(wall) {
			candidates = append(candidates, instant.UTC())
		}
	}
	if len(candidates) == 0 {
		return time.Time{}, false
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Before(candidates[j])
	})
	return candidates[0], true
}

// UTCToLocal returns the naive wall clock reading of utc in zone tzID.
func UTCToLocal(utc time.Time, tzID string) time.Time {
	return Naive(utc.In(Resolve(tzID)))
}

func UTCToLocalIn(utc time.Time, loc *time.Location) time.Time {
	return Naive(utc.In(loc))
}
