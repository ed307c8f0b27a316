package domain

import (
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DateLayout is the calendar-date format used on the wire and in storage.
	DateLayout = "2006-01-02"
	// MonthLayout is the billing month bucket format.
	MonthLayout = "2006-01"
)

var monthRegex = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// RoundMoney rounds an amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ClampMoney saturates v into [lo, hi].
func ClampMoney(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// MonthOf returns the YYYY-MM bucket of t.
func MonthOf(t time.Time) string {
	return t.Format(MonthLayout)
}

// ValidMonth reports whether s has the literal YYYY-MM shape.
func ValidMonth(s string) bool {
	return monthRegex.MatchString(s)
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return t, nil
}

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ShiftMonths moves t forward by n months and pins the day of month to day,
// clamped to the last day of the target month.
func ShiftMonths(t time.Time, n, day int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}
