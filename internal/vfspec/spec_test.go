package vfspec

import "testing"

func TestValidateAcceptsWellFormedSpec(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	raw := []byte(`{"data": [{"name": "source"}], "marks": []}`)
	doc, err := v.Validate(raw)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if _, ok := doc["data"]; !ok {
		t.Fatalf("expected data key in decoded spec")
	}
}

func TestValidateRejectsWrongShape(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	raw := []byte(`{"data": "not-an-array"}`)
	if _, err := v.Validate(raw); err == nil {
		t.Fatalf("expected validation error for non-array data")
	}
}

func TestValidateRejectsMalformedJSON(t *testing.T) {
	v, err := NewValidator()
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	if _, err := v.Validate([]byte(`{not json`)); err == nil {
		t.Fatalf("expected parse error")
	}
}
