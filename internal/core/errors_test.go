package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestFailClassifiesUnknownErrorsAsStorage(t *testing.T) {
	err := Fail("list_transactions", 42, errors.New("disk I/O error"))

	if !errors.Is(err, ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected *OpError, got %T", err)
	}
	if opErr.Op != "list_transactions" || opErr.UserID != 42 {
		t.Fatalf("unexpected context %+v", opErr)
	}
}

func TestFailKeepsKnownKinds(t *testing.T) {
	cases := map[string]error{
		"validation": ErrInvalidAmount,
		"forbidden":  fmt.Errorf("transaction 3: %w", ErrForbidden),
		"not found":  fmt.Errorf("transaction 3: %w", ErrNotFound),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			err := Fail("update_transaction", 1, in)
			if errors.Is(err, ErrStorage) {
				t.Fatalf("%v must not be reclassified as storage", in)
			}
			if !errors.Is(err, in) {
				t.Fatalf("expected chain to keep %v", in)
			}
		})
	}
}

func TestFailNil(t *testing.T) {
	if err := Fail("noop", 1, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestValidationSentinelsShareKind(t *testing.T) {
	for _, err := range []error{ErrInvalidAmount, ErrInvalidDate, ErrInvalidMonth,
		ErrInvalidRecurrence, ErrEmptyCategory, ErrEmptyPaymentMethod, ErrDescriptionTooLong, ErrEmptyPatch} {
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%v should match ErrValidation", err)
		}
	}
}
