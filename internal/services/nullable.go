package services

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var nullBytes = []byte("null")

// NullableString is an update field that distinguishes a key missing from the
// request body (Set false) from an explicit null (Set true, Value nil).
type NullableString struct {
	Set   bool
	Value *string
}

// NewNullableString returns a field set to s.
func NewNullableString(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

// UnmarshalJSON implements json.Unmarshaler. It only runs when the key is
// present, so reaching it marks the field as set.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	n.Value = nil
	if bytes.Equal(bytes.TrimSpace(data), nullBytes) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected a string or null: %w", err)
	}
	n.Value = &s
	return nil
}
