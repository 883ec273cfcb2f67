package dates

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"vulcancal/internal/record"
)

var weekdayNames = map[string]int{
	"monday": 1, "mon": 1, "poniedzialek": 1, "poniedziałek": 1,
	"tuesday": 2, "tue": 2, "wtorek": 2,
	"wednesday": 3, "wed": 3, "sroda": 3, "środa": 3,
	"thursday": 4, "thu": 4, "czwartek": 4,
	"friday": 5, "fri": 5, "piatek": 5, "piątek": 5,
	"saturday": 6, "sat": 6, "sobota": 6,
	"sunday": 7, "sun": 7, "niedziela": 7,
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func ISOWeekday(d civil.Date) int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// NormalizeWeekday maps a weekday signal to ISO numbering (1=Monday).
//
// Numbers 1..7 are read as ISO. Some payloads number Monday as 0, so 0
// alone is shifted to 1; the rest of such a payload is not detectable and
// is taken as ISO unchanged. A blanket +1 would move every ISO value by a
// day. A time.Weekday (Sunday=0) is converted by its own convention.
// English and Polish day names are accepted.
func NormalizeWeekday(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case time.Weekday:
		if x < time.Sunday || x > time.Saturday {
			return 0, false
		}
		if x == time.Sunday {
			return 7, true
		}
		return int(x), true
	case string:
		if n, ok := weekdayNames[strings.ToLower(strings.TrimSpace(x))]; ok {
			return n, true
		}
	}
	n, ok := record.Int(v)
	if !ok {
		return 0, false
	}
	switch {
	case n == 0:
		return 1, true
	case n >= 1 && n <= 7:
		return n, true
	}
	return 0, false
}

// ResolveLessonDate computes the calendar date of a lesson record.
//
// An explicit date is authoritative unless an independent weekday signal
// disagrees with it; then the date moves within its own week to that
// weekday. Records without an explicit date need a week anchor and a
// weekday: anchor + (weekday-1) days.
func ResolveLessonDate(item any) (civil.Date, bool) {
	var (
		date    civil.Date
		hasDate bool
	)
	if v, ok := record.Date.In(item); ok {
		date, hasDate = CoerceDate(v)
	}

	var (
		weekday    int
		hasWeekday bool
	)
	if v, ok := record.Weekday.In(item); ok {
		weekday, hasWeekday = NormalizeWeekday(v)
	}

	if !hasDate {
		if !hasWeekday {
			return civil.Date{}, false
		}
		v, ok := record.WeekStart.In(item)
		if !ok {
			return civil.Date{}, false
		}
		anchor, ok := CoerceDate(v)
		if !ok {
			return civil.Date{}, false
		}
		return anchor.AddDays(weekday - 1), true
	}

	if hasWeekday {
		if iso := ISOWeekday(date); iso != weekday {
			return date.AddDays(weekday - iso), true
		}
	}
	return date, true
}
