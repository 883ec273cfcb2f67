// Package ics renders normalized events as an iCalendar feed.
package ics

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "vulcancal/internal/log"
	"vulcancal/internal/model"
)

const productID = "-//vulcancal//school calendar//PL"

// Feed describes one exported calendar.
type Feed struct {
	// Name is shown by clients as the calendar title.
	Name     string
	Kind     model.Kind
	Location *time.Location
	// Stamp is written as DTSTAMP on every event.
	Stamp time.Time
}

// Title builds the display name of a calendar, e.g. "Vulcan schedule (Jan Kowalski)".
func Title(kind model.Kind, pupil string) string {
	if pupil == "" {
		return fmt.Sprintf("Vulcan %s", kind)
	}
	return fmt.Sprintf("Vulcan %s (%s)", kind, pupil)
}

// Filename is the download name of a feed, e.g. "vulcan_jan_kowalski_exam.ics".
func Filename(slug string, kind model.Kind) string {
	if slug == "" {
		return fmt.Sprintf("vulcan_%s.ics", kind)
	}
	return fmt.Sprintf("vulcan_%s_%s.ics", slug, kind)
}

// Build converts evs into a VCALENDAR. All-day events are written with
// VALUE=DATE; timed events in UTC.
func Build(feed Feed, evs []model.Event) *ical.Calendar {
	loc := feed.Location
	if loc == nil {
		loc = time.Local
	}
	stamp := feed.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if feed.Name != "" {
		cal.SetName(feed.Name)
		cal.SetXWRCalName(feed.Name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, ev := range evs {
		addEvent(cal, ev, loc, stamp)
	}
	return cal
}

func addEvent(cal *ical.Calendar, ev model.Event, loc *time.Location, stamp time.Time) {
	ve := cal.AddEvent(ev.UID)
	ve.SetDtStampTime(stamp)
	ve.SetSummary(ev.Summary)
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	if ev.Kind != "" {
		ve.SetProperty(ical.ComponentPropertyCategories, strings.ToUpper(string(ev.Kind)))
	}

	if ev.AllDay {
		ve.SetAllDayStartAt(ev.Start.Date().In(loc))
		ve.SetAllDayEndAt(ev.End.Date().In(loc))
		return
	}
	ve.SetStartAt(ev.Start.Instant(loc))
	ve.SetEndAt(ev.End.Instant(loc))
}

// Write serializes the feed to w.
func Write(w io.Writer, feed Feed, evs []model.Event) error {
	if err := Build(feed, evs).SerializeTo(w); err != nil {
		appLog.Error("ics serialize failed", err, "kind", feed.Kind, "event_count", len(evs))
		return err
	}
	appLog.Debug("ics feed written", "kind", feed.Kind, "event_count", len(evs))
	return nil
}
