package record

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Text renders a scalar as trimmed text. Nil, empty strings and
// non-scalar values (records, slices) report false.
func Text(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(x)
		return s, s != ""
	case *string:
		if x == nil {
			return "", false
		}
		return Text(*x)
	case fmt.Stringer:
		s := strings.TrimSpace(x.String())
		return s, s != ""
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	case reflect.Pointer:
		if rv.IsNil() {
			return "", false
		}
		return Text(rv.Elem().Interface())
	}
	return "", false
}

// Int reads an integral number from ints, whole floats, json.Number or
// numeric strings.
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return Int(rv.Elem().Interface())
	}
	return 0, false
}

// Truthy interprets boolean-style flags: true, non-zero numbers and the
// strings "true", "1", "yes", "y", "t".
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case *bool:
		return x != nil && *x
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "1", "yes", "y", "t":
			return true
		}
		return false
	}
	if n, ok := Int(v); ok {
		return n != 0
	}
	return false
}

// IsBoolish reports whether v is a flag value rather than a nested record.
func IsBoolish(v any) bool {
	switch v.(type) {
	case bool, *bool:
		return true
	}
	_, isNum := Int(v)
	return isNum
}

// List returns the elements of a slice or array value. Other values,
// including nil, yield nil.
func List(v any) []any {
	switch x := v.(type) {
	case nil:
		return nil
	case []any:
		return x
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
