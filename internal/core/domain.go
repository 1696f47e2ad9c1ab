package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RecurrenceNone Recurrence = "none"
	Daily          Recurrence = "daily"
	Weekly         Recurrence = "weekly"
	Monthly        Recurrence = "monthly"
	Yearly         Recurrence = "yearly"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"

	maxDescriptionLen = 200
)

type (
	Recurrence string

	Date struct {
		time.Time
	}

	// Month is a calendar month without a day component.
	Month struct {
		Year  int
		Month time.Month
	}

	Transaction struct {
		ID            int64
		UserID        int64
		SeriesID      int64 // 0 when the row starts its own series
		Amount        decimal.Decimal
		Category      string
		Description   string
		OccurredOn    Date
		PaymentMethod string
		Recurrence    Recurrence
	}

	// TransactionPatch lists the fields an owner may change after creation.
	// Nil fields are left untouched.
	TransactionPatch struct {
		Amount        *decimal.Decimal
		Category      *string
		Description   *string
		PaymentMethod *string
	}

	Budget struct {
		UserID int64
		Month  Month
		Amount decimal.Decimal
	}
)

// ParseRecurrence accepts the empty string as an alias for none.
func ParseRecurrence(s string) (Recurrence, error) {
	r := Recurrence(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return RecurrenceNone, nil
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

func (r Recurrence) Validate() error {
	switch r {
	case RecurrenceNone, Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRecurrence, string(r))
	}
}

// IsRecurring reports whether rows with this rule produce further occurrences.
func (r Recurrence) IsRecurring() bool {
	return r != RecurrenceNone && r != ""
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping the calendar day as seen in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q, use YYYY-MM-DD", ErrInvalidDate, s)
	}
	return DateOf(t), nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

// Before and After compare calendar days.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q, use YYYY-MM", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) Validate() error {
	if m.Month < time.January || m.Month > time.December || m.Year < 1 {
		return fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, m.Year, int(m.Month))
	}
	return nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Contains reports whether d falls in m.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

// SeriesKey identifies the recurring series a row belongs to.
func (t Transaction) SeriesKey() int64 {
	if t.SeriesID != 0 {
		return t.SeriesID
	}
	return t.ID
}

func (t Transaction) IsRecurring() bool {
	return t.Recurrence.IsRecurring()
}

func (t Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.PaymentMethod) == "" {
		return ErrEmptyPaymentMethod
	}
	if len(t.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := t.OccurredOn.Validate(); err != nil {
		return err
	}
	return t.Recurrence.Validate()
}

// NextOccurrence copies t into a new, unsaved row dated on and attached to t's series.
func (t Transaction) NextOccurrence(on Date) Transaction {
	return Transaction{
		UserID:        t.UserID,
		SeriesID:      t.SeriesKey(),
		Amount:        t.Amount,
		Category:      t.Category,
		Description:   t.Description,
		OccurredOn:    on,
		PaymentMethod: t.PaymentMethod,
		Recurrence:    t.Recurrence,
	}
}

// IsEmpty is true when the patch changes nothing.
func (p TransactionPatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Description == nil && p.PaymentMethod == nil
}

// Apply returns a copy of t with the patch applied. The result still needs Validate.
func (p TransactionPatch) Apply(t Transaction) Transaction {
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.PaymentMethod != nil {
		t.PaymentMethod = strings.TrimSpace(*p.PaymentMethod)
	}
	return t
}

func (b Budget) Validate() error {
	if err := b.Month.Validate(); err != nil {
		return err
	}
	return ValidateAmount(b.Amount)
}
