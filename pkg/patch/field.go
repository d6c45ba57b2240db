// Package patch provides presence-tracked fields for partial updates.
//
// A Field left out of a JSON document stays unset, so only the fields a
// client actually sent are written back. For nullable columns use a pointer
// type parameter: an explicit JSON null yields a set field holding nil.
package patch

import "encoding/json"

// Field holds an optional update value and whether it was supplied.
type Field[T any] struct {
	Value T
	Set   bool
}

// Of returns a set field.
func Of[T any](v T) Field[T] {
	return Field[T]{Value: v, Set: true}
}

// Get returns the value and whether it was supplied.
func (f Field[T]) Get() (T, bool) {
	return f.Value, f.Set
}

// Apply writes the value into dst when the field is set.
func (f Field[T]) Apply(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}

func (f *Field[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.Value = v
	f.Set = true
	return nil
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}
