/*
Package ledger provides the shared core of the time & compensation engine.

PURPOSE:
  This package contains the types and helpers every domain ledger builds on:
  type-safe identifiers, calendar primitives (Date, TimeOfDay), decimal
  arithmetic helpers, error kinds, and per-employee serialization.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID / RequestID: type-safe identifiers
  - Date: a calendar day without a time component (used as ledger keys)
  - TimeOfDay: a wall-clock time within a day (work start, shift boundaries)

DESIGN PRINCIPLES:
  1. Immutability: punch events, overtime records and statements are never
     modified once written
  2. Precision: decimal.Decimal for hours, days and money - no float drift
  3. Type Safety: strong typing for IDs prevents mixing employees and requests
  4. Derivation: hours and balances are always folds over stored records,
     never cached running totals

SEE ALSO:
  - errors.go: error kinds shared by all ledgers
  - lock.go:   per-employee mutation serialization
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

type RequestID string

// =============================================================================
// DATE - A calendar day (no time component)
// =============================================================================

// Date identifies a calendar day. Punch events, leave ranges and overtime
// requests are keyed by dates; comparisons never involve wall-clock time.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateOf truncates a timestamp to its calendar day in the timestamp's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight of the date in the given location.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d Date) Before(other Date) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

func (d Date) Equal(other Date) bool { return d == other }

func (d Date) IsZero() bool { return d == Date{} }

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Message: fmt.Sprintf("invalid date %q", s)}
	}
	return DateOf(t), nil
}

// MonthRange returns the first and last day of a month.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := NewDate(year, month, 1)
	last := DateOf(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
	return first, last
}

// YearRange returns January 1 and December 31 of a year.
func YearRange(year int) (Date, Date) {
	return NewDate(year, time.January, 1), NewDate(year, time.December, 31)
}

// =============================================================================
// TIME OF DAY - Wall-clock time within a day
// =============================================================================

// TimeOfDay is a wall-clock time such as a work-start boundary.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an HH:MM string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, &ValidationError{Field: "time", Message: fmt.Sprintf("invalid time %q", s)}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// On anchors the time of day to a specific date in the given location.
func (t TimeOfDay) On(d Date, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

var secondsPerHour = decimal.NewFromInt(3600)

// HoursOf converts a duration to decimal hours at full precision.
func HoursOf(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d / time.Second)).Div(secondsPerHour)
}

// EightHours is the standard working day used to convert hours to days.
var EightHours = decimal.NewFromInt(8)
