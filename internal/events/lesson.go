package events

import (
	"fmt"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"

	"vulcancal/internal/dates"
	"vulcancal/internal/lesson"
	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

const (
	lessonPlaceholder  = "Lekcja"
	substitutionMarker = " (substitution)"
)

// Lesson builds a timed event from a timetable entry. Cancelled lessons
// and entries without a full time slot or a resolvable date produce no
// event.
func (b *Builder) Lesson(item any) Result {
	if lesson.IsCancelled(item) {
		return skipped(SkipCancelled)
	}

	slot, ok := record.TimeSlot.In(item)
	if !ok || slot == nil {
		return skipped(SkipMissingTimeSlot)
	}
	startTime, ok := slotTime(slot, record.SlotStart)
	if !ok {
		return skipped(SkipMissingTimeSlot)
	}
	endTime, ok := slotTime(slot, record.SlotEnd)
	if !ok {
		return skipped(SkipMissingTimeSlot)
	}

	day, ok := dates.ResolveLessonDate(item)
	if !ok {
		return skipped(SkipUnresolvableDate)
	}

	start := dates.Combine(day, startTime, b.loc)
	end := dates.Combine(day, endTime, b.loc)
	if end.Before(start) {
		return skipped(SkipInvalidRange)
	}

	summary, fromSubject := lesson.SubjectName(item)
	var (
		label    string
		hasLabel bool
	)
	if v, ok := record.EventLabel.In(item); ok {
		label, hasLabel = textOf(v, record.Name)
	}
	if !fromSubject {
		if hasLabel {
			summary = label
		} else {
			summary = lessonPlaceholder
		}
	}
	if lesson.IsSubstitution(item) {
		summary += substitutionMarker
	}

	ev := model.Event{
		Kind:    model.KindSchedule,
		Summary: summary,
		Start:   model.At(start),
		End:     model.At(end),
	}
	if code, ok := lesson.RoomCode(item); ok {
		ev.Location = "Room " + code
	}

	var d description
	if r, ok := lesson.AbsenceReason(item); ok {
		d.add("Absence reason", r)
	}
	if r, ok := lesson.SubstitutionReason(item); ok {
		d.add("Substitution reason", r)
	}
	switch teachers := lesson.Teachers(item); len(teachers) {
	case 0:
	case 1:
		d.add("Teacher", teachers[0])
	default:
		d.add("Teachers", strings.Join(teachers, ", "))
	}
	if v, ok := record.Clazz.In(item); ok {
		if s, ok := textOf(v, record.ClassSymbol); ok {
			d.add("Class", s)
		}
	}
	if v, ok := record.Distribution.In(item); ok {
		if s, ok := textOf(v, record.GroupName); ok {
			d.add("Group", s)
		}
	}
	d.add("Hours", slotHours(slot, startTime, endTime))
	if v, ok := record.SlotPosition.In(slot); ok {
		if n, ok := record.Int(v); ok {
			d.add("Lesson no.", strconv.Itoa(n))
		}
	}
	if hasLabel && fromSubject {
		d.add("Note", label)
	}
	b.addAccount(&d)

	ev.Description = d.String()
	return b.finish(ev)
}

func slotTime(slot any, f record.Field) (civil.Time, bool) {
	v, ok := f.In(slot)
	if !ok {
		return civil.Time{}, false
	}
	return dates.CoerceTime(v)
}

func slotHours(slot any, start, end civil.Time) string {
	if v, ok := record.SlotDisplay.In(slot); ok {
		if s, ok := record.Text(v); ok {
			return s
		}
	}
	return fmt.Sprintf("%02d:%02d-%02d:%02d", start.Hour, start.Minute, end.Hour, end.Minute)
}

func (b *Builder) addAccount(d *description) {
	if b.account == nil {
		return
	}
	d.add("Pupil", b.account.PupilName)
	unit := b.account.UnitName
	if unit == "" {
		unit = b.account.UnitShort
	}
	d.add("Unit", unit)
}

// description assembles "Label: value" lines, dropping empty values.
type description struct {
	lines []string
}

func (d *description) add(label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	d.lines = append(d.lines, label+": "+value)
}

func (d *description) String() string {
	return strings.Join(d.lines, "\n")
}
