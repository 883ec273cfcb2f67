package events

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"vulcancal/internal/dates"
	"vulcancal/internal/lesson"
	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

const (
	homeworkLabel  = "Zadanie"
	examLabel      = "Sprawdzian"
	genericSummary = "Wydarzenie"
	labelSeparator = " – "
)

// uidNamespace scopes the name-based event UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceDNS, []byte("vulcancal.local"))

// Homework builds a single all-day event on the deadline, falling back to
// the lesson date and then to today.
func (b *Builder) Homework(item any) Result {
	day := b.dateFrom(item, record.Deadline, record.Date)
	return b.finish(model.Event{
		Kind:        model.KindHomework,
		Summary:     labelled(item, homeworkLabel),
		Description: contentOf(item),
		AllDay:      true,
		Start:       model.OnDate(day),
		End:         model.OnDate(day.AddDays(1)),
	})
}

// Exam builds a single all-day event on the deadline, falling back to
// today. The lesson date is not consulted.
func (b *Builder) Exam(item any) Result {
	day := b.dateFrom(item, record.Deadline)
	return b.finish(model.Event{
		Kind:        model.KindExam,
		Summary:     labelled(item, examLabel),
		Description: contentOf(item),
		AllDay:      true,
		Start:       model.OnDate(day),
		End:         model.OnDate(day.AddDays(1)),
	})
}

// dateFrom returns the first field that coerces to a date, else today.
func (b *Builder) dateFrom(item any, fields ...record.Field) civil.Date {
	for _, f := range fields {
		if v, ok := f.In(item); ok {
			if d, ok := dates.CoerceDate(v); ok {
				return d
			}
		}
	}
	return b.today
}

func labelled(item any, label string) string {
	if subject, ok := lesson.SubjectName(item); ok {
		return subject + labelSeparator + label
	}
	return label
}

func contentOf(item any) string {
	v, ok := record.Content.In(item)
	if !ok {
		return ""
	}
	s, _ := verbatim(v)
	return s
}

// IsVacation reports whether item carries a name and both vacation bounds.
func IsVacation(item any) bool {
	if v, ok := record.Name.In(item); !ok || v == nil {
		return false
	}
	return record.Present(item, record.DateFrom) && record.Present(item, record.DateTo)
}

// Vacation builds an all-day event spanning [from, to] inclusive.
func (b *Builder) Vacation(item any) Result {
	fromV, _ := record.DateFrom.In(item)
	toV, _ := record.DateTo.In(item)
	from, ok := dates.CoerceDate(fromV)
	if !ok {
		return skipped(SkipUnresolvableDate)
	}
	to, ok := dates.CoerceDate(toV)
	if !ok {
		return skipped(SkipUnresolvableDate)
	}
	if to.Before(from) {
		return skipped(SkipInvalidRange)
	}
	name, _ := record.Name.In(item)
	summary, ok := record.Text(name)
	if !ok {
		summary = genericSummary
	}
	return b.finish(model.Event{
		Kind:    model.KindVacation,
		Summary: summary,
		AllDay:  true,
		Start:   model.OnDate(from),
		End:     model.OnDate(to.AddDays(1)),
	})
}

// Generic builds an event from loosely named keys. A missing or invalid
// end defaults to one day after an all-day start or one hour after a
// timed one.
func (b *Builder) Generic(kind model.Kind, item any, allDay bool) Result {
	startV, ok := record.GenericStart.In(item)
	if !ok {
		return skipped(SkipUnresolvableStart)
	}
	start, ok := dates.CoerceMoment(startV, allDay, b.loc)
	if !ok {
		return skipped(SkipUnresolvableStart)
	}

	end := b.defaultEnd(start)
	if v, present := record.GenericEnd.In(item); present {
		if m, coerced := dates.CoerceMoment(v, allDay, b.loc); coerced && validSpan(start, m, b.loc) {
			end = m
		}
	}

	summary := genericSummary
	if v, present := record.GenericSummary.In(item); present {
		if s, ok := textOf(v, record.Name); ok {
			summary = s
		}
	}
	ev := model.Event{
		Kind:    kind,
		Summary: summary,
		AllDay:  allDay,
		Start:   start,
		End:     end,
	}
	if v, present := record.GenericDescription.In(item); present {
		ev.Description, _ = verbatim(v)
	}
	if v, present := record.GenericLocation.In(item); present {
		ev.Location, _ = record.Text(v)
	}
	return b.finish(ev)
}

func (b *Builder) defaultEnd(start model.Moment) model.Moment {
	if start.IsDate() {
		return model.OnDate(start.Date().AddDays(1))
	}
	return model.At(start.Time().Add(time.Hour))
}

// validSpan enforces end > start for all-day events and end >= start for
// timed ones.
func validSpan(start, end model.Moment, loc *time.Location) bool {
	if start.IsDate() {
		return end.Date().After(start.Date())
	}
	return !end.Instant(loc).Before(start.Instant(loc))
}

// finish stamps the deterministic UID.
func (b *Builder) finish(ev model.Event) Result {
	ev.UID = UID(ev)
	return Result{Event: ev}
}

// Key identifies a logical event for deduplication.
func Key(ev model.Event) string {
	return strings.Join([]string{
		string(ev.Kind),
		ev.Summary,
		ev.Start.String(),
		ev.End.String(),
		ev.Location,
	}, "\x1f")
}

// UID is the name-based UUID of the event key, stable across refreshes.
func UID(ev model.Event) string {
	return uuid.NewSHA1(uidNamespace, []byte(Key(ev))).String()
}
