package model

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes a field that was supplied from one that was left out.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set && !o.null
}

// IsSet reports whether the field was present in the input at all.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsNull reports whether the field was present as an explicit JSON null.
func (o Optional[T]) IsNull() bool {
	return o.null
}

// IsZero lets encoding/json omit unset fields with the omitzero option.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

// MarshalJSON encodes the held value.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set || o.null {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON marks the field as present and decodes its value.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.null = true
		return nil
	}
	o.null = false
	return json.Unmarshal(data, &o.value)
}
