// Package events builds normalized calendar events from raw upstream
// records and answers range and next-event queries over them.
package events

import (
	"time"

	"cloud.google.com/go/civil"

	"vulcancal/internal/lesson"
	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

// SkipReason explains why a raw record produced no event.
type SkipReason string

const (
	SkipCancelled         SkipReason = "cancelled"
	SkipMissingTimeSlot   SkipReason = "missing_time_slot"
	SkipUnresolvableDate  SkipReason = "unresolvable_date"
	SkipInvalidRange      SkipReason = "invalid_range"
	SkipUnresolvableStart SkipReason = "unresolvable_start"
	SkipUnknownShape      SkipReason = "unknown_shape"
	SkipMalformed         SkipReason = "malformed"
	SkipDuplicate         SkipReason = "duplicate"
)

// Result is the outcome of building one record: an event, or the reason
// there is none.
type Result struct {
	Event model.Event
	Skip  SkipReason
}

func (r Result) OK() bool { return r.Skip == "" }

func skipped(reason SkipReason) Result {
	return Result{Skip: reason}
}

// Options carry the per-pass context of a normalization.
type Options struct {
	// Location is used to combine dates with local times and to turn
	// all-day dates into instants. Defaults to time.Local.
	Location *time.Location
	// Now is the reference time for the "today" fallback of homework and
	// exams. Defaults to time.Now().
	Now time.Time
	// Account, when set, adds pupil and unit lines to lesson descriptions.
	Account *model.AccountInfo
}

// Builder turns single records into events. It holds no mutable state, so
// one Builder may be shared by concurrent callers.
type Builder struct {
	loc     *time.Location
	today   civil.Date
	account *model.AccountInfo
}

func NewBuilder(opts Options) *Builder {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Builder{
		loc:     loc,
		today:   civil.DateOf(now.In(loc)),
		account: opts.Account,
	}
}

func (b *Builder) Location() *time.Location { return b.loc }

// Build dispatches item to the builder for its kind.
//
// Within the schedule kind a record with a name and both vacation bounds
// is a vacation. A record carrying any lesson field (slot, date, weekday,
// week start, subject, substitution, cancellation or status) is a lesson.
// Only records without any of those are built generically from their
// start, and cancelled ones are skipped first. Homework and exam records
// that carry none of their typed fields fall back to the generic builder.
func (b *Builder) Build(kind model.Kind, item any) Result {
	if _, ok := record.AsRecord(item); !ok {
		return skipped(SkipUnknownShape)
	}
	switch kind {
	case model.KindSchedule:
		switch {
		case IsVacation(item):
			return b.Vacation(item)
		case anyKey(item, lessonFields...):
			return b.Lesson(item)
		case lesson.IsCancelled(item):
			return skipped(SkipCancelled)
		case record.Present(item, record.GenericStart):
			return b.Generic(kind, item, false)
		}
		return b.Lesson(item)
	case model.KindHomework:
		if anyKey(item, record.Subject, record.Content, record.Deadline, record.Date) {
			return b.Homework(item)
		}
		return b.genericOrUnknown(kind, item)
	case model.KindExam:
		if anyKey(item, record.Subject, record.Content, record.Deadline, record.Type) {
			return b.Exam(item)
		}
		return b.genericOrUnknown(kind, item)
	case model.KindVacation:
		if IsVacation(item) {
			return b.Vacation(item)
		}
		return b.genericOrUnknown(kind, item)
	}
	return skipped(SkipUnknownShape)
}

func (b *Builder) genericOrUnknown(kind model.Kind, item any) Result {
	if !record.Present(item, record.GenericStart) {
		return skipped(SkipUnknownShape)
	}
	return b.Generic(kind, item, true)
}

// lessonFields mark a schedule record as a timetable entry.
var lessonFields = []record.Field{
	record.TimeSlot,
	record.Date,
	record.Weekday,
	record.WeekStart,
	record.Subject,
	record.Substitution,
	record.ChangeType,
	record.Cancelled,
	record.SubstitutionFlag,
	record.Status,
}

func hasKey(item any, f record.Field) bool {
	_, ok := f.In(item)
	return ok
}

func anyKey(item any, fields ...record.Field) bool {
	for _, f := range fields {
		if hasKey(item, f) {
			return true
		}
	}
	return false
}

// textOf reads the named field of a nested record, or v itself when it is
// a scalar.
func textOf(v any, field record.Field) (string, bool) {
	if _, ok := record.AsRecord(v); ok {
		x, ok := field.In(v)
		if !ok {
			return "", false
		}
		return record.Text(x)
	}
	return record.Text(v)
}

// verbatim returns a string value unchanged when it has any non-space
// content; other scalars are rendered as text.
func verbatim(v any) (string, bool) {
	if s, ok := v.(string); ok {
		if _, nonEmpty := record.Text(s); nonEmpty {
			return s, true
		}
		return "", false
	}
	return record.Text(v)
}
