package types

import (
	"encoding/json"
	"testing"
)

func TestNullableUUIDUnmarshal(t *testing.T) {
	type payload struct {
		CustomerID NullableUUID `json:"customer_id"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"customer_id": "00000000-0000-0000-0000-000000000001"}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.CustomerID.Set || got.CustomerID.Ptr() == nil {
		t.Fatalf("expected set uuid, got %+v", got.CustomerID)
	}
	if got.CustomerID.Ptr().String() != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected uuid %s", got.CustomerID.Value)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"customer_id": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.CustomerID.Set || got.CustomerID.Ptr() != nil {
		t.Fatalf("expected explicit null, got %+v", got.CustomerID)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"customer_id": "00000000-0000-0000-0000-000000000000"}`), &got); err != nil {
		t.Fatalf("unmarshal nil uuid: %v", err)
	}
	if !got.CustomerID.Set || got.CustomerID.Ptr() != nil {
		t.Fatalf("expected nil uuid to clear, got %+v", got.CustomerID)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.CustomerID.Set {
		t.Fatalf("expected unset for missing field, got %+v", got.CustomerID)
	}

	if err := json.Unmarshal([]byte(`{"customer_id": "nope"}`), &got); err == nil {
		t.Fatalf("expected error for malformed uuid")
	}
}
