package services

import (
	"errors"
	"testing"
	"time"

	"fintrack/internal/core"
)

func ymd(y int, m time.Month, day int) core.Date { return core.NewDate(y, m, day) }

func TestRecurrenceRules_Next(t *testing.T) {
	tests := []struct {
		name string
		rule RecurrenceRule
		from core.Date
		want core.Date
	}{
		{"daily - plain", DailyRule{}, ymd(2024, time.March, 14), ymd(2024, time.March, 15)},
		{"daily - month end", DailyRule{}, ymd(2024, time.January, 31), ymd(2024, time.February, 1)},
		{"daily - leap day", DailyRule{}, ymd(2024, time.February, 28), ymd(2024, time.February, 29)},
		{"daily - year end", DailyRule{}, ymd(2023, time.December, 31), ymd(2024, time.January, 1)},
		{"weekly - plain", WeeklyRule{}, ymd(2024, time.January, 1), ymd(2024, time.January, 8)},
		{"weekly - across month", WeeklyRule{}, ymd(2024, time.February, 26), ymd(2024, time.March, 4)},
		{"monthly - month end normalises to 1st", MonthlyRule{}, ymd(2024, time.January, 31), ymd(2024, time.February, 1)},
		{"monthly - mid month normalises to 1st", MonthlyRule{}, ymd(2024, time.January, 15), ymd(2024, time.February, 1)},
		{"monthly - from the 1st", MonthlyRule{}, ymd(2024, time.February, 1), ymd(2024, time.March, 1)},
		{"monthly - december rolls year", MonthlyRule{}, ymd(2023, time.December, 15), ymd(2024, time.January, 1)},
		{"yearly - plain", YearlyRule{}, ymd(2023, time.March, 15), ymd(2024, time.March, 15)},
		{"yearly - leap day clamps", YearlyRule{}, ymd(2024, time.February, 29), ymd(2025, time.February, 28)},
		{"yearly - into leap year", YearlyRule{}, ymd(2023, time.February, 28), ymd(2024, time.February, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule.Next(tt.from)
			if got != tt.want {
				t.Errorf("Next(%s) = %s, want %s", tt.from, got, tt.want)
			}
		})
	}
}

func TestMonthlyRule_AnyDayLandsOnFirstOfNextMonth(t *testing.T) {
	for day := 1; day <= 31; day++ {
		got := MonthlyRule{}.Next(ymd(2024, time.January, day))
		if got != ymd(2024, time.February, 1) {
			t.Fatalf("Jan %d: got %s, want 2024-02-01", day, got)
		}
	}
}

func TestGetRecurrenceRule(t *testing.T) {
	tests := []struct {
		name    string
		r       core.Recurrence
		wantErr bool
	}{
		{"daily", core.Daily, false},
		{"weekly", core.Weekly, false},
		{"monthly", core.Monthly, false},
		{"yearly", core.Yearly, false},
		{"none", core.RecurrenceNone, true},
		{"unknown", core.Recurrence("biweekly"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := GetRecurrenceRule(tt.r)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetRecurrenceRule() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !errors.Is(err, core.ErrInvalidRecurrence) {
				t.Errorf("GetRecurrenceRule() error = %v, want ErrInvalidRecurrence", err)
			}
			if !tt.wantErr && rule == nil {
				t.Error("GetRecurrenceRule() returned nil rule")
			}
		})
	}
}
