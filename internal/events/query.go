package events

import (
	"time"

	"vulcancal/internal/model"
)

// Overlaps reports whether ev intersects the half-open window
// [start, end). Events that only touch a boundary do not overlap.
func Overlaps(ev model.Event, start, end time.Time, loc *time.Location) bool {
	return ev.Start.Instant(loc).Before(end) && ev.End.Instant(loc).After(start)
}

// InRange returns the events overlapping [start, end), sorted by start.
// The input slice is not modified.
func InRange(evs []model.Event, start, end time.Time, loc *time.Location) []model.Event {
	var out []model.Event
	for _, ev := range evs {
		if Overlaps(ev, start, end, loc) {
			out = append(out, ev)
		}
	}
	Sort(out, loc)
	return out
}

// Next returns the not yet ended event with the earliest start. Ties go
// to the first one in evs.
func Next(evs []model.Event, now time.Time, loc *time.Location) (model.Event, bool) {
	var (
		best      model.Event
		bestStart time.Time
		found     bool
	)
	for _, ev := range evs {
		if ev.End.Instant(loc).Before(now) {
			continue
		}
		s := ev.Start.Instant(loc)
		if !found || s.Before(bestStart) {
			best, bestStart, found = ev, s, true
		}
	}
	return best, found
}
