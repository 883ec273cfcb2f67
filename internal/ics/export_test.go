package ics

import (
	"bytes"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulcancal/internal/model"
)

func warsaw(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	return loc
}

func TestWrite_RoundTrip(t *testing.T) {
	loc := warsaw(t)
	evs := []model.Event{
		{
			UID:         "lesson-1",
			Kind:        model.KindSchedule,
			Summary:     "Math",
			Description: "Teacher: Anna Nowak\nHours: 08:00-08:45",
			Location:    "Room 12",
			Start:       model.At(time.Date(2024, 9, 3, 8, 0, 0, 0, loc)),
			End:         model.At(time.Date(2024, 9, 3, 8, 45, 0, 0, loc)),
		},
		{
			UID:     "vacation-1",
			Kind:    model.KindSchedule,
			Summary: "Autumn break",
			AllDay:  true,
			Start:   model.OnDate(civil.Date{Year: 2024, Month: time.October, Day: 14}),
			End:     model.OnDate(civil.Date{Year: 2024, Month: time.October, Day: 19}),
		},
	}

	var buf bytes.Buffer
	feed := Feed{Name: Title(model.KindSchedule, "Jan Kowalski"), Kind: model.KindSchedule, Location: loc, Stamp: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, Write(&buf, feed, evs))

	out := buf.String()
	assert.Contains(t, out, "X-WR-CALNAME:Vulcan schedule (Jan Kowalski)")
	assert.Contains(t, out, "DTSTART;VALUE=DATE:20241014")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20241019")
	assert.Contains(t, out, "DTSTART:20240903T060000Z")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	parsed := cal.Events()
	require.Len(t, parsed, 2)

	lesson := parsed[0]
	assert.Equal(t, "lesson-1", lesson.Id())
	assert.Equal(t, "Math", lesson.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Room 12", lesson.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "SCHEDULE", lesson.GetProperty(ical.ComponentPropertyCategories).Value)
	start, err := lesson.GetStartAt()
	require.NoError(t, err)
	assert.True(t, start.Equal(time.Date(2024, 9, 3, 8, 0, 0, 0, loc)))
	end, err := lesson.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, end.Sub(start))

	vacation := parsed[1]
	assert.Equal(t, "vacation-1", vacation.Id())
	assert.Nil(t, vacation.GetProperty(ical.ComponentPropertyDescription))
	assert.Nil(t, vacation.GetProperty(ical.ComponentPropertyLocation))
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, Feed{Kind: model.KindExam}, nil))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestNames(t *testing.T) {
	assert.Equal(t, "Vulcan exam", Title(model.KindExam, ""))
	assert.Equal(t, "Vulcan homework (Jan Kowalski)", Title(model.KindHomework, "Jan Kowalski"))
	assert.Equal(t, "vulcan_jan_kowalski_exam.ics", Filename("jan_kowalski", model.KindExam))
	assert.Equal(t, "vulcan_schedule.ics", Filename("", model.KindSchedule))
}
