package http

import (
	"errors"
	"strings"
	"testing"
)

func TestAddressValidation(t *testing.T) {
	type P struct {
		Borrower string `validate:"address"`
	}
	cv := NewValidator()

	for _, s := range []string{
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8", // checksummed
		"0x70997970c51812dc3a010c7d01b50e0d17dc79c8", // lowercase
		"70997970c51812dc3a010c7d01b50e0d17dc79c8",   // no prefix
	} {
		if err := cv.Validate(P{Borrower: s}); err != nil {
			t.Fatalf("expected valid address for %q, got err: %v", s, err)
		}
	}

	for _, s := range []string{
		"",       // empty
		"0x1234", // too short
		"0x70997970c51812dc3a010c7d01b50e0d17dc79c8ff", // too long
		"0xzz997970c51812dc3a010c7d01b50e0d17dc79c8",   // non-hex
	} {
		err := cv.Validate(P{Borrower: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Borrower", "20-byte hex address") {
			t.Fatalf("expected address message for %q, got: %+v", s, fe)
		}
	}
}

func TestWeiValidation(t *testing.T) {
	type P struct {
		Value string `validate:"wei"`
	}
	cv := NewValidator()

	max := "115792089237316195423570985008687907853269984665640564039457584007913129639935"
	for _, v := range []string{"0", "1", "1100000000000000000", max} {
		if err := cv.Validate(P{Value: v}); err != nil {
			t.Fatalf("expected wei OK for %q, got %v", v, err)
		}
	}
	for _, v := range []string{"", "-1", "1.5", "0x10", "abc", max + "0"} {
		err := cv.Validate(P{Value: v})
		if err == nil {
			t.Fatalf("expected wei error for %q", v)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Value", "integer amount in wei") {
			t.Fatalf("expected wei message for %q, got %+v", v, fe)
		}
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Name string `validate:"required"`
		Min  int    `validate:"gte=10"`
		Max  int    `validate:"lte=5"`
		Kind string `validate:"oneof=a b"`
	}
	cv := NewValidator()

	err := cv.Validate(P{Name: "", Min: 9, Max: 6, Kind: "c"})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	if !containsFieldMsg(fe, "Name", "is required") {
		t.Fatalf("missing 'is required' for Name: %+v", fe)
	}
	if !containsFieldMsg(fe, "Min", "greater than or equal to 10") {
		t.Fatalf("missing gte message for Min: %+v", fe)
	}
	if !containsFieldMsg(fe, "Max", "less than or equal to 5") {
		t.Fatalf("missing lte message for Max: %+v", fe)
	}
	if !containsFieldMsg(fe, "Kind", "oneof validation failed") {
		t.Fatalf("missing fallback message for Kind: %+v", fe)
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	fe := ToFieldErrors(errors.New("boom"))
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || !strings.Contains(fe[0].Message, "boom") {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}
