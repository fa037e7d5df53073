package dateutil

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date wire format used by the API.
const DateLayout = "2006-01-02"

// ParseDate parses a calendar-date string and truncates it to day granularity.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return TruncateToDay(t), nil
}

// TruncateToDay drops the time-of-day portion, keeping the date in UTC.
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonths advances t by n calendar months using time.AddDate semantics:
// overflowing days are normalized into the next month, so Jan 31 + 1 month
// is Mar 2 (Mar 3 in non-leap years), not Feb 28. Installment due dates
// rely on this policy.
func AddMonths(t time.Time, n int) time.Time {
	return TruncateToDay(t.AddDate(0, n, 0))
}

// FormatDate renders a date in the API wire format.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// MinorToDecimal converts integer minor units (cents) to a decimal amount
// in major units, e.g. 123456 -> 1234.56. Used only at the presentation
// edge; all balance arithmetic stays in integer minor units.
func MinorToDecimal(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}

// FormatMinorUnits renders integer minor units as a fixed two-decimal string.
func FormatMinorUnits(amount int64) string {
	return MinorToDecimal(amount).StringFixed(2)
}
