package record

// Field is the ordered alias list of one logical field. The first alias
// the record carries wins, so order is priority.
type Field []string

// In looks the field up in v. v may be any value AsRecord understands.
func (f Field) In(v any) (any, bool) {
	r, ok := AsRecord(v)
	if !ok {
		return nil, false
	}
	return Get(r, f...)
}

// Lookup resolves a path of fields, one per nesting level.
func Lookup(v any, path ...Field) (any, bool) {
	cur := v
	for _, f := range path {
		var ok bool
		cur, ok = f.In(cur)
		if !ok {
			return nil, false
		}
	}
	return cur, len(path) > 0
}

// Present reports whether the field resolves to a non-nil value.
func Present(v any, path ...Field) bool {
	x, ok := Lookup(v, path...)
	return ok && x != nil
}

// Alias tables for every logical field the normalizer reads. Upstream
// payloads use PascalCase, older client models snake_case, and some
// camelCase; the spellings are listed in lookup priority.
var (
	Date      = Field{"date_", "date", "dateAt", "DateAt"}
	Weekday   = Field{"day", "weekday", "day_of_week", "dayOfWeek", "DayOfWeek"}
	WeekStart = Field{"week_start", "weekStart", "week_start_date", "weekStartDate", "WeekStart"}

	TimeSlot     = Field{"time_slot", "timeSlot", "TimeSlot"}
	SlotStart    = Field{"start", "Start"}
	SlotEnd      = Field{"end", "End"}
	SlotDisplay  = Field{"display", "Display"}
	SlotPosition = Field{"position", "Position"}

	Substitution = Field{"substitution", "Substitution"}
	Change       = Field{"change", "Change"}
	Type         = Field{"type", "Type"}
	ChangeType   = Field{"change_type", "changeType", "ChangeType"}
	ClassAbsence = Field{"class_absence", "classAbsence", "ClassAbsence"}

	Cancelled = Field{
		"cancelled", "canceled",
		"is_cancelled", "is_canceled",
		"isCancelled", "isCanceled",
		"IsCancelled", "IsCanceled",
	}
	SubstitutionFlag = Field{
		"is_substitution", "isSubstitution", "IsSubstitution",
		"replacement", "is_replacement", "isReplacement", "IsReplacement",
	}
	Status = Field{"status", "Status"}

	AbsenceReason = Field{
		"teacher_absence_reason", "teacherAbsenceReason", "TeacherAbsenceReason",
		"absence_reason", "absenceReason", "AbsenceReason",
	}
	SubstitutionReason     = Field{"reason", "Reason", "substitution_reason", "substitutionReason", "SubstitutionReason"}
	FlatSubstitutionReason = Field{"substitution_reason", "substitutionReason", "SubstitutionReason"}

	Subject          = Field{"subject", "Subject"}
	Name             = Field{"name", "Name"}
	Room             = Field{"room", "Room"}
	Code             = Field{"code", "Code"}
	TeacherPrimary   = Field{"teacher_primary", "teacherPrimary", "TeacherPrimary"}
	TeacherSecondary = Field{"teacher_secondary", "teacherSecondary", "TeacherSecondary"}
	TeacherThird     = Field{"teacher_secondary2", "teacherSecondary2", "TeacherSecondary2"}
	Teachers         = Field{"teachers", "Teachers"}
	DisplayName      = Field{"display_name", "displayName", "DisplayName"}
	Surname          = Field{"surname", "Surname"}
	EventLabel       = Field{"event", "Event"}
	Clazz            = Field{"clazz", "Clazz"}
	ClassSymbol      = Field{"symbol", "Symbol", "display", "Display"}
	Distribution     = Field{"distribution", "Distribution"}
	GroupName        = Field{"shortcut", "Shortcut", "name", "Name"}

	Deadline = Field{"deadline", "deadlineAt", "DeadlineAt", "Deadline"}
	Content  = Field{"content", "description", "Content", "Description"}

	DateFrom = Field{"date_from", "dateFrom", "DateFrom"}
	DateTo   = Field{"date_to", "dateTo", "DateTo"}

	GenericSummary     = Field{"summary", "title", "subject", "name"}
	GenericDescription = Field{"description", "content", "details"}
	GenericStart       = Field{"start", "start_date", "start_datetime", "date", "date_", "dateAt"}
	GenericEnd         = Field{"end", "end_date", "end_datetime"}
	GenericLocation    = Field{"location", "Location"}

	ID = Field{"id", "Id", "ID"}
)
