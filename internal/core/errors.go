package core

import (
	"errors"
	"fmt"
)

// Error kinds. Every error leaving the services layer matches exactly one of
// these through errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
	ErrNotFound   = errors.New("not found")
	ErrStorage    = errors.New("storage failure")
)

var (
	ErrInvalidAmount      = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidDate        = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidMonth       = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidRecurrence  = fmt.Errorf("%w: invalid recurrence, use none, daily, weekly, monthly or yearly", ErrValidation)
	ErrEmptyCategory      = fmt.Errorf("%w: empty category", ErrValidation)
	ErrEmptyPaymentMethod = fmt.Errorf("%w: empty payment method", ErrValidation)
	ErrDescriptionTooLong = fmt.Errorf("%w: description too long (max 200 characters)", ErrValidation)
	ErrEmptyPatch         = fmt.Errorf("%w: nothing to update", ErrValidation)
)

// OpError records which operation failed and for whom.
type OpError struct {
	Op     string
	UserID int64
	Err    error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s (user %d): %v", e.Op, e.UserID, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Fail wraps err with operation context. Errors that do not already carry one of
// the known kinds are classified as storage failures.
func Fail(op string, userID int64, err error) error {
	if err == nil {
		return nil
	}
	if !IsKnownKind(err) {
		err = fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return &OpError{Op: op, UserID: userID, Err: err}
}

// IsKnownKind reports whether err already matches one of the error kinds.
func IsKnownKind(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrStorage)
}
