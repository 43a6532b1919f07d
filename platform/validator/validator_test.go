package validator

import (
	"errors"
	"testing"
)

type sample struct {
	Title   string `json:"title" validate:"required,min=3"`
	Urgency string `json:"urgency" validate:"omitempty,oneof=basse normale haute urgente"`
}

func TestFieldsUsesJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(sample{Title: "x", Urgency: "critique"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := Fields(err)
	if fields["title"] != "min" {
		t.Fatalf("expected title/min, got %v", fields)
	}
	if fields["urgency"] != "oneof" {
		t.Fatalf("expected urgency/oneof, got %v", fields)
	}
}

func TestFieldsIgnoresOtherErrors(t *testing.T) {
	if Fields(errors.New("boom")) != nil {
		t.Fatal("expected nil for non-validation error")
	}
	if err := New().Struct(sample{Title: "Fuite"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
