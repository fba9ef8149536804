package gateway

import (
	"bytes"
	"encoding/json"
)

// Field is an optional wire value. It tells apart a key that was missing, a
// key that was explicitly null and a key that carried a value.
type Field[T any] struct {
	present bool
	null    bool
	value   T
}

// Some returns a field holding value.
func Some[T any](value T) Field[T] {
	return Field[T]{present: true, value: value}
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.present = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.null = true
		return nil
	}

	// numbers stay json.Number so integers wider than float64 survive
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(&f.value)
}

func (f Field[T]) MarshalJSON() ([]byte, error) {
	if !f.present || f.null {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// IsAbsent reports whether the key was missing from the document.
func (f Field[T]) IsAbsent() bool {
	return !f.present
}

// IsNull reports whether the key was present with a null value.
func (f Field[T]) IsNull() bool {
	return f.present && f.null
}

// Get returns the value and whether one was carried.
func (f Field[T]) Get() (T, bool) {
	if !f.present || f.null {
		var zero T
		return zero, false
	}
	return f.value, true
}

// OrElse returns the value, or def when absent or null.
func (f Field[T]) OrElse(def T) T {
	if v, ok := f.Get(); ok {
		return v
	}
	return def
}
