// Package record implements ordered multi-key lookup over upstream items
// whose shape is not guaranteed.
//
// An item is either a Mapping (decoded JSON, keys in whatever casing the
// upstream used) or a Struct (a typed Go value read by field name, json
// tag or rec tag). Both satisfy Record, so callers never branch on shape.
package record

import (
	"encoding"
	"reflect"
	"strings"
	"sync"
)

// Record is anything that can report whether it carries a key.
//
// A present key with a nil value still counts as present; the accessor
// stops at the first present candidate.
type Record interface {
	Value(key string) (any, bool)
}

// Mapping is a key/value record, typically decoded from JSON.
type Mapping map[string]any

func (m Mapping) Value(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}

// Struct reads the exported fields of a struct value.
//
// A field answers to its Go name, its json tag name and every alias listed
// in a `rec:"a,b"` tag. Nil pointer fields are present with a nil value.
type Struct struct {
	v reflect.Value
}

// FromStruct wraps a struct or a non-nil pointer to struct. It returns
// false for anything else.
func FromStruct(v any) (Struct, bool) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Struct{}, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return Struct{}, false
	}
	return Struct{v: rv}, true
}

func (s Struct) Value(key string) (any, bool) {
	if !s.v.IsValid() {
		return nil, false
	}
	idx, ok := fieldIndex(s.v.Type())[key]
	if !ok {
		return nil, false
	}
	f := s.v.Field(idx)
	switch f.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if f.IsNil() {
			return nil, true
		}
	}
	return f.Interface(), true
}

var indexCache sync.Map // reflect.Type -> map[string]int

func fieldIndex(t reflect.Type) map[string]int {
	if m, ok := indexCache.Load(t); ok {
		return m.(map[string]int)
	}
	m := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		m[sf.Name] = i
		if tag, ok := sf.Tag.Lookup("json"); ok {
			name, _, _ := strings.Cut(tag, ",")
			if name != "" && name != "-" {
				m[name] = i
			}
		}
		if tag, ok := sf.Tag.Lookup("rec"); ok {
			for _, alias := range strings.Split(tag, ",") {
				if alias = strings.TrimSpace(alias); alias != "" {
					m[alias] = i
				}
			}
		}
	}
	indexCache.Store(t, m)
	return m
}

var textMarshaler = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// AsRecord views v as a Record when it has a readable shape: a Record,
// a map with string keys, or a struct. Scalar-like structs (time.Time,
// civil dates, anything implementing encoding.TextMarshaler) are not
// records.
func AsRecord(v any) (Record, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case Record:
		return x, true
	case map[string]any:
		return Mapping(x), true
	case encoding.TextMarshaler:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && !rv.IsNil() && rv.Type().Implements(textMarshaler) {
		return nil, false
	}
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		if rv.IsNil() {
			return nil, false
		}
		m := make(Mapping, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		return m, true
	}
	if s, ok := FromStruct(v); ok {
		return s, true
	}
	return nil, false
}

// Get tries each key in order and returns the first present value.
func Get(r Record, keys ...string) (any, bool) {
	if r == nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := r.Value(k); ok {
			return v, true
		}
	}
	return nil, false
}

// GetNested follows path one key per level. Missing or nil intermediate
// levels yield absent; it never panics on missing structure.
func GetNested(v any, path ...string) (any, bool) {
	cur := v
	for _, key := range path {
		r, ok := AsRecord(cur)
		if !ok {
			return nil, false
		}
		cur, ok = r.Value(key)
		if !ok {
			return nil, false
		}
	}
	return cur, len(path) > 0
}
