// Package dates turns the many temporal representations found in upstream
// records into civil dates, civil times and event moments, and resolves the
// calendar date of a lesson.
package dates

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

// Full date-time layouts tried after a strict date/time parse fails.
// RFC3339 covers both "Z" and numeric offsets.
var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var clockLayouts = []string{
	"15:04",
	"15.04",
}

// Nested shapes some payloads use for a date ({"Date": "...", "Time": "..."}).
var (
	nestedDate = record.Field{"date", "Date"}
	nestedTime = record.Field{"time", "Time"}
)

// CoerceDate converts v to a civil date. It accepts civil.Date,
// civil.DateTime, time.Time (and pointers to them), ISO-8601 date or
// date-time strings, and records carrying a nested Date key. Malformed
// input reports false.
func CoerceDate(v any) (civil.Date, bool) {
	switch x := v.(type) {
	case nil:
		return civil.Date{}, false
	case civil.Date:
		return x, x.IsValid()
	case *civil.Date:
		if x == nil {
			return civil.Date{}, false
		}
		return CoerceDate(*x)
	case civil.DateTime:
		return x.Date, x.Date.IsValid()
	case *civil.DateTime:
		if x == nil {
			return civil.Date{}, false
		}
		return CoerceDate(*x)
	case time.Time:
		if x.IsZero() {
			return civil.Date{}, false
		}
		return civil.DateOf(x), true
	case *time.Time:
		if x == nil {
			return civil.Date{}, false
		}
		return CoerceDate(*x)
	case string:
		return parseDate(x)
	}
	if inner, ok := nestedDate.In(v); ok {
		return CoerceDate(inner)
	}
	return civil.Date{}, false
}

func parseDate(s string) (civil.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Date{}, false
	}
	if d, err := civil.ParseDate(s); err == nil {
		return d, true
	}
	if t, ok := parseDateTime(s, time.UTC); ok {
		return civil.DateOf(t), true
	}
	return civil.Date{}, false
}

// CoerceTime converts v to a civil time of day. It accepts civil.Time,
// civil.DateTime, time.Time, "HH:MM[:SS]" strings, full ISO date-time
// strings and records carrying a nested Time key.
func CoerceTime(v any) (civil.Time, bool) {
	switch x := v.(type) {
	case nil:
		return civil.Time{}, false
	case civil.Time:
		return x, x.IsValid()
	case *civil.Time:
		if x == nil {
			return civil.Time{}, false
		}
		return CoerceTime(*x)
	case civil.DateTime:
		return x.Time, x.Time.IsValid()
	case time.Time:
		if x.IsZero() {
			return civil.Time{}, false
		}
		return civil.TimeOf(x), true
	case *time.Time:
		if x == nil {
			return civil.Time{}, false
		}
		return CoerceTime(*x)
	case string:
		return parseClock(x)
	}
	if inner, ok := nestedTime.In(v); ok {
		return CoerceTime(inner)
	}
	return civil.Time{}, false
}

func parseClock(s string) (civil.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civil.Time{}, false
	}
	if t, err := civil.ParseTime(s); err == nil {
		return t, true
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return civil.TimeOf(t), true
		}
	}
	if t, ok := parseDateTime(s, time.UTC); ok {
		return civil.TimeOf(t), true
	}
	return civil.Time{}, false
}

// parseDateTime parses a full ISO date-time. Strings without an offset are
// read as wall clock in loc.
func parseDateTime(s string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceMoment converts a generic start/end value into an event moment.
//
// With allDay set every input collapses to its civil date. Otherwise dates
// become local midnight in loc, naive date-times are read in loc, and
// aware instants keep their offset.
func CoerceMoment(v any, allDay bool, loc *time.Location) (model.Moment, bool) {
	if loc == nil {
		loc = time.Local
	}
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return model.Moment{}, false
		}
		if allDay {
			return model.OnDate(civil.DateOf(x)), true
		}
		return model.At(x), true
	case *time.Time:
		if x == nil {
			return model.Moment{}, false
		}
		return CoerceMoment(*x, allDay, loc)
	case civil.DateTime:
		if !x.IsValid() {
			return model.Moment{}, false
		}
		if allDay {
			return model.OnDate(x.Date), true
		}
		return model.At(x.In(loc)), true
	case string:
		s := strings.TrimSpace(x)
		if d, err := civil.ParseDate(s); err == nil {
			if allDay {
				return model.OnDate(d), true
			}
			return model.At(d.In(loc)), true
		}
		t, ok := parseDateTime(s, loc)
		if !ok {
			return model.Moment{}, false
		}
		return CoerceMoment(t, allDay, loc)
	}
	d, ok := CoerceDate(v)
	if !ok {
		return model.Moment{}, false
	}
	if allDay {
		return model.OnDate(d), true
	}
	return model.At(d.In(loc)), true
}

// Combine places a civil date and time on the clock of loc.
func Combine(d civil.Date, t civil.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return civil.DateTime{Date: d, Time: t}.In(loc)
}
