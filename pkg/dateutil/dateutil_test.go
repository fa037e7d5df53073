package dateutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-01-15")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("15/01/2024")
	assert.Error(t, err)

	_, err = ParseDate("")
	assert.Error(t, err)
}

func TestTruncateToDay(t *testing.T) {
	in := time.Date(2024, 3, 9, 17, 45, 12, 999, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC), TruncateToDay(in))
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		months   int
		expected string
	}{
		{"mid-month is stable", "2024-01-15", 1, "2024-02-15"},
		{"multiple months", "2024-01-15", 3, "2024-04-15"},
		{"year rollover", "2023-11-15", 3, "2024-02-15"},
		// Month-end overflow normalizes forward, it does not clamp.
		{"jan 31 into leap february", "2024-01-31", 1, "2024-03-02"},
		{"jan 31 into non-leap february", "2023-01-31", 1, "2023-03-03"},
		{"may 31 into june", "2024-05-31", 1, "2024-07-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, err := ParseDate(tt.start)
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, FormatDate(AddMonths(start, tt.months)))
		})
	}
}

func TestFormatMinorUnits(t *testing.T) {
	assert.Equal(t, "1234.56", FormatMinorUnits(123456))
	assert.Equal(t, "0.00", FormatMinorUnits(0))
	assert.Equal(t, "0.07", FormatMinorUnits(7))
	assert.Equal(t, "10.00", FormatMinorUnits(1000))
}
