// Package lesson classifies timetable entries as cancelled or substituted
// and merges substitution data over the base lesson.
package lesson

import (
	"strings"

	"vulcancal/internal/record"
)

// cancelChangeTypes are the upstream substitution change-type codes that
// remove a lesson from the plan (0, 1 and 4 in the provider enumeration).
// The set is pinned by the upstream contract; no names are inferred.
var cancelChangeTypes = map[int]struct{}{
	0: {},
	1: {},
	4: {},
}

const (
	statusCancelled    = "CANCELLED"
	statusSubstitution = "SUBSTITUTION"
	statusReplacement  = "REPLACEMENT"
)

// Substitution returns the substitution block of item when one is present
// as a nested record. A boolean-style value under the same key is a flag,
// not a block.
func Substitution(item any) (record.Record, bool) {
	v, ok := record.Substitution.In(item)
	if !ok || v == nil {
		return nil, false
	}
	return record.AsRecord(v)
}

// ChangeType reads the change type of the substitution block.
func ChangeType(item any) (int, bool) {
	sub, ok := Substitution(item)
	if !ok {
		return 0, false
	}
	if v, ok := record.Lookup(sub, record.Change, record.Type); ok {
		if n, ok := record.Int(v); ok {
			return n, true
		}
	}
	if v, ok := record.Change.In(sub); ok {
		if n, ok := record.Int(v); ok {
			return n, true
		}
	}
	if v, ok := record.ChangeType.In(sub); ok {
		return record.Int(v)
	}
	return 0, false
}

// IsCancelled reports whether the lesson does not take place.
func IsCancelled(item any) bool {
	if n, ok := ChangeType(item); ok {
		if _, cancelled := cancelChangeTypes[n]; cancelled {
			return true
		}
	}
	if sub, ok := Substitution(item); ok {
		if v, ok := record.ClassAbsence.In(sub); ok && record.Truthy(v) {
			return true
		}
	}
	if v, ok := record.Cancelled.In(item); ok && record.Truthy(v) {
		return true
	}
	return statusIs(item, statusCancelled)
}

// IsSubstitution reports whether the lesson is changed by a substitution.
func IsSubstitution(item any) bool {
	if _, ok := Substitution(item); ok {
		return true
	}
	if v, ok := record.Substitution.In(item); ok && record.IsBoolish(v) && record.Truthy(v) {
		return true
	}
	if v, ok := record.SubstitutionFlag.In(item); ok && record.Truthy(v) {
		return true
	}
	return statusIs(item, statusSubstitution) || statusIs(item, statusReplacement)
}

func statusIs(item any, want string) bool {
	v, ok := record.Status.In(item)
	if !ok {
		return false
	}
	s, ok := record.Text(v)
	return ok && strings.EqualFold(s, want)
}

// layers returns the records to consult for a merged field, substitution
// first.
func layers(item any) []any {
	if sub, ok := Substitution(item); ok {
		return []any{sub, item}
	}
	return []any{item}
}

// SubjectName is the merged subject name.
func SubjectName(item any) (string, bool) {
	for _, layer := range layers(item) {
		if v, ok := record.Subject.In(layer); ok {
			if s, ok := nameOf(v, record.Name); ok {
				return s, true
			}
		}
	}
	return "", false
}

// RoomCode is the merged room code.
func RoomCode(item any) (string, bool) {
	for _, layer := range layers(item) {
		if v, ok := record.Room.In(layer); ok {
			if s, ok := nameOf(v, record.Code); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Teachers lists the merged teacher names. When the substitution block
// names any teacher, its list replaces the base lesson's.
func Teachers(item any) []string {
	for _, layer := range layers(item) {
		if names := teachersOf(layer); len(names) > 0 {
			return names
		}
	}
	return nil
}

func teachersOf(v any) []string {
	var (
		names []string
		seen  = make(map[string]struct{})
	)
	add := func(t any) {
		name, ok := TeacherName(t)
		if !ok {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	for _, f := range []record.Field{record.TeacherPrimary, record.TeacherSecondary, record.TeacherThird} {
		if t, ok := f.In(v); ok {
			add(t)
		}
	}
	if list, ok := record.Teachers.In(v); ok {
		for _, t := range record.List(list) {
			add(t)
		}
	}
	return names
}

// TeacherName renders an employee record as its display name, falling
// back to "name surname". Plain strings are used as-is.
func TeacherName(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return record.Text(s)
	}
	if _, ok := record.AsRecord(v); !ok {
		return "", false
	}
	if d, ok := record.DisplayName.In(v); ok {
		if s, ok := record.Text(d); ok {
			return s, true
		}
	}
	var parts []string
	for _, f := range []record.Field{record.Name, record.Surname} {
		if x, ok := f.In(v); ok {
			if s, ok := record.Text(x); ok {
				parts = append(parts, s)
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// AbsenceReason is the teacher absence reason, substitution first.
func AbsenceReason(item any) (string, bool) {
	for _, layer := range layers(item) {
		if v, ok := record.AbsenceReason.In(layer); ok {
			if s, ok := record.Text(v); ok {
				return s, true
			}
		}
	}
	return "", false
}

// SubstitutionReason is the reason given for the change.
func SubstitutionReason(item any) (string, bool) {
	if sub, ok := Substitution(item); ok {
		if v, ok := record.SubstitutionReason.In(sub); ok {
			if s, ok := record.Text(v); ok {
				return s, true
			}
		}
	}
	if v, ok := record.FlatSubstitutionReason.In(item); ok {
		return record.Text(v)
	}
	return "", false
}

// nameOf reads the named field of a nested record, or the value itself
// when it is already a scalar.
func nameOf(v any, field record.Field) (string, bool) {
	if _, ok := record.AsRecord(v); ok {
		x, ok := field.In(v)
		if !ok {
			return "", false
		}
		return record.Text(x)
	}
	return record.Text(v)
}
