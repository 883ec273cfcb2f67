package events

import (
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(Options{
		Location: warsaw(t),
		Now:      time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC),
	})
}

func slot(start, end string) map[string]any {
	return map[string]any{"start": start, "end": end}
}

func TestLesson_FromWeekAnchor(t *testing.T) {
	b := newBuilder(t)
	loc := b.Location()

	res := b.Build(model.KindSchedule, record.Mapping{
		"date_":      nil,
		"day":        1,
		"week_start": "2024-09-02",
		"time_slot":  slot("08:00", "08:45"),
		"subject":    map[string]any{"name": "Math"},
	})
	require.True(t, res.OK(), res.Skip)

	ev := res.Event
	assert.Equal(t, "Math", ev.Summary)
	assert.Equal(t, model.KindSchedule, ev.Kind)
	assert.False(t, ev.AllDay)
	assert.True(t, ev.Start.Time().Equal(time.Date(2024, 9, 2, 8, 0, 0, 0, loc)))
	assert.True(t, ev.End.Time().Equal(time.Date(2024, 9, 2, 8, 45, 0, 0, loc)))
	assert.Empty(t, ev.Location)
	assert.Equal(t, "Hours: 08:00-08:45", ev.Description)
	assert.NotEmpty(t, ev.UID)
}

func TestLesson_Cancelled(t *testing.T) {
	b := newBuilder(t)
	base := func() record.Mapping {
		return record.Mapping{
			"date_":     "2024-09-03",
			"time_slot": slot("08:00", "08:45"),
			"subject":   map[string]any{"name": "Math"},
		}
	}
	signals := map[string]func(record.Mapping){
		"change type 0": func(m record.Mapping) { m["substitution"] = map[string]any{"change": map[string]any{"type": 0}} },
		"change type 1": func(m record.Mapping) { m["substitution"] = map[string]any{"change": map[string]any{"type": 1}} },
		"change type 4": func(m record.Mapping) { m["substitution"] = map[string]any{"change": map[string]any{"type": 4}} },
		"class absence": func(m record.Mapping) { m["substitution"] = map[string]any{"class_absence": true} },
		"flag":          func(m record.Mapping) { m["cancelled"] = true },
		"status":        func(m record.Mapping) { m["status"] = "Cancelled" },
	}
	for name, apply := range signals {
		t.Run(name, func(t *testing.T) {
			item := base()
			apply(item)
			res := b.Build(model.KindSchedule, item)
			assert.False(t, res.OK())
			assert.Equal(t, SkipCancelled, res.Skip)
		})
	}

	slotless := []struct {
		name string
		item record.Mapping
	}{
		{"flag", record.Mapping{"date_": "2024-09-03", "subject": map[string]any{"name": "Math"}, "cancelled": true}},
		{"status", record.Mapping{"date": "2024-09-02", "title": "Math", "status": "CANCELLED"}},
		{"flag with generic start", record.Mapping{"start": "2024-09-02T08:00:00", "title": "Math", "isCanceled": true}},
	}
	for _, tt := range slotless {
		t.Run("no slot "+tt.name, func(t *testing.T) {
			assert.Equal(t, SkipCancelled, b.Build(model.KindSchedule, tt.item).Skip)
		})
	}
}

func TestLesson_Substitution(t *testing.T) {
	b := newBuilder(t)
	res := b.Lesson(record.Mapping{
		"date_":     "2024-09-03",
		"time_slot": map[string]any{"start": "10:00", "end": "10:45", "display": "10:00-10:45", "position": 3},
		"subject":   map[string]any{"name": "Math"},
		"room":      map[string]any{"code": "12"},
		"teacher_primary": map[string]any{
			"display_name": "Anna Nowak",
		},
		"clazz":        map[string]any{"symbol": "3a"},
		"distribution": map[string]any{"shortcut": "gr1"},
		"event":        "bring calculator",
		"substitution": map[string]any{
			"change":               map[string]any{"type": 2},
			"Subject":              map[string]any{"Name": "Physics"},
			"Room":                 map[string]any{"Code": "7"},
			"TeacherPrimary":       map[string]any{"DisplayName": "Jan Kowalski"},
			"TeacherSecondary":     map[string]any{"Name": "Ewa", "Surname": "Lis"},
			"TeacherAbsenceReason": "illness",
			"Reason":               "trip",
		},
	})
	require.True(t, res.OK(), res.Skip)

	ev := res.Event
	assert.Equal(t, "Physics (substitution)", ev.Summary)
	assert.Equal(t, "Room 7", ev.Location)
	assert.Equal(t, "Absence reason: illness\n"+
		"Substitution reason: trip\n"+
		"Teachers: Jan Kowalski, Ewa Lis\n"+
		"Class: 3a\n"+
		"Group: gr1\n"+
		"Hours: 10:00-10:45\n"+
		"Lesson no.: 3\n"+
		"Note: bring calculator", ev.Description)
}

func TestLesson_SummaryFallbacks(t *testing.T) {
	b := newBuilder(t)
	item := record.Mapping{"date_": "2024-09-03", "time_slot": slot("08:00", "08:45"), "event": "Trip"}
	res := b.Lesson(item)
	require.True(t, res.OK())
	assert.Equal(t, "Trip", res.Event.Summary)
	assert.NotContains(t, res.Event.Description, "Note")

	res = b.Lesson(record.Mapping{"date_": "2024-09-03", "time_slot": slot("08:00", "08:45")})
	require.True(t, res.OK())
	assert.Equal(t, lessonPlaceholder, res.Event.Summary)

	res = b.Lesson(record.Mapping{"date_": "2024-09-03", "time_slot": slot("08:00", "08:45"), "replacement": true})
	require.True(t, res.OK())
	assert.Equal(t, lessonPlaceholder+substitutionMarker, res.Event.Summary)
}

func TestLesson_Rejected(t *testing.T) {
	b := newBuilder(t)
	tests := []struct {
		name string
		item record.Mapping
		want SkipReason
	}{
		{"nil slot", record.Mapping{"date_": "2024-09-03", "time_slot": nil}, SkipMissingTimeSlot},
		{"no slot end", record.Mapping{"date_": "2024-09-03", "time_slot": map[string]any{"start": "08:00"}}, SkipMissingTimeSlot},
		{"malformed slot time", record.Mapping{"date_": "2024-09-03", "time_slot": slot("8 am", "08:45")}, SkipMissingTimeSlot},
		{"no date", record.Mapping{"time_slot": slot("08:00", "08:45")}, SkipUnresolvableDate},
		{"weekday without anchor", record.Mapping{"day": 2, "time_slot": slot("08:00", "08:45")}, SkipUnresolvableDate},
		{"end before start", record.Mapping{"date_": "2024-09-03", "time_slot": slot("09:00", "08:45")}, SkipInvalidRange},
		{"date without slot", record.Mapping{"date_": "2024-09-03", "subject": map[string]any{"name": "Math"}}, SkipMissingTimeSlot},
		{"generic date without slot", record.Mapping{"date": "2024-09-03", "title": "Math"}, SkipMissingTimeSlot},
		{"weekday without slot", record.Mapping{"day": 2, "week_start": "2024-09-02", "start": "2024-09-03"}, SkipMissingTimeSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := b.Build(model.KindSchedule, tt.item)
			assert.Equal(t, tt.want, res.Skip)
		})
	}
}

type timeSlot struct {
	Start   string
	End     string
	Display string
}

type subjectRef struct {
	Name string
}

type scheduleItem struct {
	DateAt   string     `json:"DateAt" rec:"date_"`
	TimeSlot *timeSlot  `json:"TimeSlot"`
	Subject  subjectRef `json:"Subject"`
}

func TestLesson_TypedRecord(t *testing.T) {
	b := newBuilder(t)
	loc := b.Location()
	item, ok := record.FromStruct(&scheduleItem{
		DateAt:   "2024-09-04",
		TimeSlot: &timeSlot{Start: "12:00", End: "12:45"},
		Subject:  subjectRef{Name: "History"},
	})
	require.True(t, ok)

	res := b.Build(model.KindSchedule, item)
	require.True(t, res.OK(), res.Skip)
	assert.Equal(t, "History", res.Event.Summary)
	assert.True(t, res.Event.Start.Time().Equal(time.Date(2024, 9, 4, 12, 0, 0, 0, loc)))

	item, _ = record.FromStruct(scheduleItem{DateAt: "2024-09-04", Subject: subjectRef{Name: "History"}})
	assert.Equal(t, SkipMissingTimeSlot, b.Build(model.KindSchedule, item).Skip)
}

func TestHomework(t *testing.T) {
	b := newBuilder(t)

	res := b.Build(model.KindHomework, record.Mapping{
		"subject":  map[string]any{"name": "Art"},
		"deadline": nil,
		"date_":    "2024-10-10",
		"content":  "Draw a tree",
	})
	require.True(t, res.OK(), res.Skip)
	ev := res.Event
	assert.Equal(t, "Art – Zadanie", ev.Summary)
	assert.True(t, ev.AllDay)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 10}, ev.Start.Date())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 11}, ev.End.Date())
	assert.Equal(t, "Draw a tree", ev.Description)
	assert.Equal(t, model.KindHomework, ev.Kind)

	res = b.Homework(record.Mapping{"Deadline": map[string]any{"Date": "2024-10-12"}, "Date": "2024-10-10", "Content": "  keep  "})
	require.True(t, res.OK())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 12}, res.Event.Start.Date())
	assert.Equal(t, "Zadanie", res.Event.Summary)
	assert.Equal(t, "  keep  ", res.Event.Description, "content is kept verbatim")

	res = b.Homework(record.Mapping{"content": ""})
	require.True(t, res.OK())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 1}, res.Event.Start.Date(), "falls back to today")
	assert.Empty(t, res.Event.Description)
}

func TestExam(t *testing.T) {
	b := newBuilder(t)

	res := b.Build(model.KindExam, record.Mapping{
		"subject":  map[string]any{"name": "Biology"},
		"deadline": "2024-10-20T00:00:00",
		"content":  "Cells",
		"type":     "test",
	})
	require.True(t, res.OK())
	assert.Equal(t, "Biology – Sprawdzian", res.Event.Summary)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 20}, res.Event.Start.Date())
	assert.Equal(t, "Cells", res.Event.Description)

	res = b.Exam(record.Mapping{"date_": "2024-10-15", "type": "quiz"})
	require.True(t, res.OK())
	assert.Equal(t, "Sprawdzian", res.Event.Summary)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 1}, res.Event.Start.Date(), "lesson date is not used for exams")
}

func TestVacation(t *testing.T) {
	b := newBuilder(t)
	item := record.Mapping{"name": "Autumn break", "date_from": "2024-10-14", "date_to": "2024-10-18"}
	assert.True(t, IsVacation(item))

	res := b.Build(model.KindSchedule, item)
	require.True(t, res.OK(), res.Skip)
	ev := res.Event
	assert.Equal(t, "Autumn break", ev.Summary)
	assert.Equal(t, model.KindVacation, ev.Kind)
	assert.True(t, ev.AllDay)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 14}, ev.Start.Date())
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 19}, ev.End.Date())

	res = b.Vacation(record.Mapping{"name": "Broken", "date_from": "2024-10-14", "date_to": "later"})
	assert.Equal(t, SkipUnresolvableDate, res.Skip)

	res = b.Vacation(record.Mapping{"name": "Backwards", "date_from": "2024-10-14", "date_to": "2024-10-10"})
	assert.Equal(t, SkipInvalidRange, res.Skip)

	assert.False(t, IsVacation(record.Mapping{"name": "x", "date_from": "2024-10-14"}))
}

type vacation struct {
	Name     string
	DateFrom map[string]any
	DateTo   map[string]any
}

func TestVacation_Typed(t *testing.T) {
	b := newBuilder(t)
	item, ok := record.FromStruct(vacation{
		Name:     "Winter break",
		DateFrom: map[string]any{"Date": "2025-01-20"},
		DateTo:   map[string]any{"Date": "2025-02-02"},
	})
	require.True(t, ok)
	res := b.Build(model.KindSchedule, item)
	require.True(t, res.OK(), res.Skip)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.February, Day: 3}, res.Event.End.Date())
}

func TestGeneric(t *testing.T) {
	b := newBuilder(t)
	loc := b.Location()

	res := b.Build(model.KindSchedule, record.Mapping{"title": "Parent meeting", "start": "2024-11-05T18:00:00"})
	require.True(t, res.OK(), res.Skip)
	ev := res.Event
	assert.Equal(t, "Parent meeting", ev.Summary)
	assert.False(t, ev.AllDay)
	assert.True(t, ev.Start.Time().Equal(time.Date(2024, 11, 5, 18, 0, 0, 0, loc)))
	assert.True(t, ev.End.Time().Equal(time.Date(2024, 11, 5, 19, 0, 0, 0, loc)))

	res = b.Build(model.KindHomework, record.Mapping{"title": "Project", "start": "2024-11-05", "details": "groups of 3", "location": "Library"})
	require.True(t, res.OK())
	assert.True(t, res.Event.AllDay)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.November, Day: 6}, res.Event.End.Date())
	assert.Equal(t, "groups of 3", res.Event.Description)
	assert.Equal(t, "Library", res.Event.Location)

	res = b.Generic(model.KindSchedule, record.Mapping{"start": "2024-11-05T18:00:00", "end": "2024-11-05T20:30:00"}, false)
	require.True(t, res.OK())
	assert.Equal(t, genericSummary, res.Event.Summary)
	assert.True(t, res.Event.End.Time().Equal(time.Date(2024, 11, 5, 20, 30, 0, 0, loc)))

	res = b.Generic(model.KindSchedule, record.Mapping{"start": "2024-11-05T18:00:00", "end": "2024-11-05T17:00:00"}, false)
	require.True(t, res.OK())
	assert.True(t, res.Event.End.Time().Equal(time.Date(2024, 11, 5, 19, 0, 0, 0, loc)), "invalid end falls back to default span")

	res = b.Generic(model.KindSchedule, record.Mapping{"title": "x", "start": "whenever"}, false)
	assert.Equal(t, SkipUnresolvableStart, res.Skip)

	res = b.Build(model.KindExam, record.Mapping{"title": "no start"})
	assert.Equal(t, SkipUnknownShape, res.Skip)
}

func TestBuild_UnknownShape(t *testing.T) {
	b := newBuilder(t)
	assert.Equal(t, SkipUnknownShape, b.Build(model.KindSchedule, 42).Skip)
	assert.Equal(t, SkipUnknownShape, b.Build(model.Kind("weather"), record.Mapping{}).Skip)
}

func TestUID_Stable(t *testing.T) {
	b := newBuilder(t)
	item := record.Mapping{"name": "Autumn break", "date_from": "2024-10-14", "date_to": "2024-10-18"}
	a := b.Vacation(item).Event
	c := newBuilder(t).Vacation(item).Event
	assert.Equal(t, a.UID, c.UID)

	item["name"] = "Other"
	assert.NotEqual(t, a.UID, b.Vacation(item).Event.UID)
}
