package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID distinguishes an absent JSON field from an explicit null. A
// list's customer is cleared with null and left alone when the field is missing.
type NullableUUID struct {
	Set   bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	n.Set = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed uuid.UUID
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	if parsed == uuid.Nil {
		n.Value = nil
		return nil
	}
	n.Value = &parsed
	return nil
}

// Ptr returns a copy of the value, nil when unset or null.
func (n NullableUUID) Ptr() *uuid.UUID {
	if n.Value == nil {
		return nil
	}
	out := *n.Value
	return &out
}
