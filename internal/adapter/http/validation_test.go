package http

import (
	"strings"
	"testing"
)

func containsFieldMsg(list []FieldError, field, substr string) bool {
	for _, e := range list {
		if e.Field == field && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func TestAddressValidation(t *testing.T) {
	type P struct {
		Who string `validate:"address"`
	}
	cv := NewValidator()

	for _, s := range []string{
		"0x00000000000000000000000000000000000000a1",
		"0x00000000000000000000000000000000000000A1",
		"00000000000000000000000000000000000000a1",
	} {
		if err := cv.Validate(P{Who: s}); err != nil {
			t.Fatalf("expected valid address %q, got err: %v", s, err)
		}
	}

	for _, s := range []string{
		"",
		"0x1234",
		"0x0000000000000000000000000000000000000000", // zero
		"0xg0000000000000000000000000000000000000a1", // non-hex
		"0x00000000000000000000000000000000000000a1ff",
	} {
		err := cv.Validate(P{Who: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Who", "hex address") {
			t.Fatalf("expected address message for %q, got: %+v", s, fe)
		}
	}
}

func TestAmountValidation(t *testing.T) {
	type P struct {
		Amount string `validate:"required,amount"`
	}
	cv := NewValidator()

	for _, s := range []string{"0", "1", "1000000000000000000000000", strings.Repeat("9", 77)} {
		if err := cv.Validate(P{Amount: s}); err != nil {
			t.Fatalf("expected amount OK for %q, got %v", s, err)
		}
	}
	for _, s := range []string{"-1", "1.5", "1e18", "0x10", "ten", strings.Repeat("9", 79)} {
		err := cv.Validate(P{Amount: s})
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		if fe := ToFieldErrors(err); !containsFieldMsg(fe, "Amount", "base-10") {
			t.Fatalf("expected amount message for %q, got: %+v", s, fe)
		}
	}

	fe := ToFieldErrors(cv.Validate(P{}))
	if !containsFieldMsg(fe, "Amount", "is required") {
		t.Fatalf("expected required message, got: %+v", fe)
	}
}

func TestToAmountAndAddress(t *testing.T) {
	if got := toAmount(" 42 "); got.Uint64() != 42 {
		t.Fatalf("toAmount = %s", got)
	}
	if got := toAmount("junk"); !got.IsZero() {
		t.Fatalf("toAmount(junk) = %s, want 0", got)
	}
	if got := toAddress("0x00000000000000000000000000000000000000a1"); got.Hex() != "0x00000000000000000000000000000000000000A1" {
		t.Fatalf("toAddress = %s", got.Hex())
	}
}

func TestToFieldErrors_NonValidatorError(t *testing.T) {
	fe := ToFieldErrors(errString("boom"))
	if len(fe) != 1 || fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected: %+v", fe)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
