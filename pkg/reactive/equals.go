package reactive

import "reflect"

// defaultEquals reports identity equality.
// Comparable dynamic types use ==. Slices and maps are equal when they share
// the same backing storage and length. Functions never compare equal. Other
// non-comparable values fall back to reflect.DeepEqual.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		bv, ok := any(b).(int)
		return ok && av == bv
	case int64:
		bv, ok := any(b).(int64)
		return ok && av == bv
	case float64:
		bv, ok := any(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := any(b).(string)
		return ok && av == bv
	case bool:
		bv, ok := any(b).(bool)
		return ok && av == bv
	}

	va := reflect.ValueOf(any(a))
	vb := reflect.ValueOf(any(b))
	if !va.IsValid() || !vb.IsValid() {
		return va.IsValid() == vb.IsValid()
	}
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Slice:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() == vb.IsNil()
		}
		return va.Len() == vb.Len() && (va.Len() == 0 || va.Pointer() == vb.Pointer())
	case reflect.Map:
		return va.Pointer() == vb.Pointer()
	case reflect.Func:
		return false
	}

	if va.Type().Comparable() {
		return compareInterfaces(any(a), any(b))
	}
	return reflect.DeepEqual(a, b)
}

// compareInterfaces uses == and falls back to DeepEqual when a comparable
// type holds a non-comparable dynamic value in one of its interface fields.
func compareInterfaces(a, b any) (equal bool) {
	defer func() {
		if recover() != nil {
			equal = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}

// NeverEqual is an equality function that reports every write as a change.
// Use it with WithEquals for signals that act as triggers.
func NeverEqual[T any](a, b T) bool {
	return false
}

// Equals reports whether a and b are equal under the comparator signals
// and memos use by default.
func Equals[T any](a, b T) bool {
	return defaultEquals(a, b)
}
