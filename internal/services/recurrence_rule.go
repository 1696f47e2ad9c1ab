// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurrence rules. Each rule
// knows how to step from one occurrence date to the next.

package services

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// RecurrenceRule is the strategy interface for computing the next due date of a series.
type RecurrenceRule interface {
	// Next returns the due date that follows an occurrence on from.
	Next(from core.Date) core.Date
}

// DailyRule advances one calendar day.
type DailyRule struct{}

func (DailyRule) Next(from core.Date) core.Date {
	return core.DateOf(from.AddDate(0, 0, 1))
}

// WeeklyRule advances seven calendar days.
type WeeklyRule struct{}

func (WeeklyRule) Next(from core.Date) core.Date {
	return core.DateOf(from.AddDate(0, 0, 7))
}

// MonthlyRule always lands on the 1st of the following month, whatever the
// day of the anchor. Jan 31 and Jan 5 both step to Feb 1.
type MonthlyRule struct{}

func (MonthlyRule) Next(from core.Date) core.Date {
	return core.NewDate(from.Year(), from.Time.Month()+1, 1)
}

// YearlyRule keeps month and day and adds a year. Feb 29 becomes Feb 28 when
// the target year is not a leap year.
type YearlyRule struct{}

func (YearlyRule) Next(from core.Date) core.Date {
	year, month := from.Year()+1, from.Time.Month()
	day := min(from.Day(), daysIn(year, month))
	return core.NewDate(year, month, day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// recurrenceRules maps recurrence values to their rule.
var recurrenceRules = map[core.Recurrence]RecurrenceRule{
	core.Daily:   DailyRule{},
	core.Weekly:  WeeklyRule{},
	core.Monthly: MonthlyRule{},
	core.Yearly:  YearlyRule{},
}

// GetRecurrenceRule returns the rule for r. Non-recurring and unknown values are errors.
func GetRecurrenceRule(r core.Recurrence) (RecurrenceRule, error) {
	rule, ok := recurrenceRules[r]
	if !ok {
		return nil, fmt.Errorf("%w: no rule for %q", core.ErrInvalidRecurrence, string(r))
	}
	return rule, nil
}
