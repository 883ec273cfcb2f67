package model

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// Kind names one of the calendars exposed to the host.
type Kind string

const (
	KindSchedule Kind = "schedule"
	KindHomework Kind = "homework"
	KindExam     Kind = "exam"
	KindVacation Kind = "vacation"
)

// QueryKinds are the kinds the host can query. Vacations are folded into
// the schedule calendar before normalization.
var QueryKinds = []Kind{KindSchedule, KindHomework, KindExam}

// ParseKind accepts the canonical names plus the plural spellings used by
// the upstream collections ("exams", "lessons").
func ParseKind(s string) (Kind, error) {
	switch s {
	case "schedule", "lessons":
		return KindSchedule, nil
	case "homework":
		return KindHomework, nil
	case "exam", "exams":
		return KindExam, nil
	case "vacation", "vacations":
		return KindVacation, nil
	}
	return "", fmt.Errorf("unknown calendar kind %q", s)
}

// Moment is either a civil date (all-day) or an absolute instant (timed).
type Moment struct {
	date    civil.Date
	instant time.Time
	allDay  bool
}

// OnDate returns an all-day moment.
func OnDate(d civil.Date) Moment {
	return Moment{date: d, allDay: true}
}

// At returns a timed moment.
func At(t time.Time) Moment {
	return Moment{instant: t}
}

func (m Moment) IsDate() bool { return m.allDay }

// Date returns the civil date of an all-day moment, or the date part of a
// timed one as seen in its own location.
func (m Moment) Date() civil.Date {
	if m.allDay {
		return m.date
	}
	return civil.DateOf(m.instant)
}

// Time returns the instant of a timed moment; zero for all-day moments.
func (m Moment) Time() time.Time {
	return m.instant
}

// Instant converts the moment to an absolute UTC instant. All-day dates
// become local midnight in loc.
func (m Moment) Instant(loc *time.Location) time.Time {
	if m.allDay {
		if loc == nil {
			loc = time.Local
		}
		return m.date.In(loc).UTC()
	}
	return m.instant.UTC()
}

func (m Moment) String() string {
	if m.allDay {
		return m.date.String()
	}
	return m.instant.Format(time.RFC3339)
}

// Event is the normalized calendar entry produced from one raw record.
type Event struct {
	// UID is stable across refreshes for the same logical event.
	UID  string
	Kind Kind

	Summary     string
	Description string // empty when absent
	Location    string // empty when absent

	AllDay bool
	Start  Moment
	End    Moment
}

// AccountInfo describes the pupil whose data is being shown.
type AccountInfo struct {
	PupilID   int
	PupilName string
	UnitName  string
	UnitShort string
	RestURL   string
}
