package ledger_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/ledger-core/ledger"
)

func TestDaysInMonth(t *testing.T) {
	assert.Equal(t, 31, ledger.DaysInMonth(2025, time.January))
	assert.Equal(t, 28, ledger.DaysInMonth(2025, time.February))
	assert.Equal(t, 29, ledger.DaysInMonth(2024, time.February))
	assert.Equal(t, 30, ledger.DaysInMonth(2025, time.April))
	assert.Equal(t, 31, ledger.DaysInMonth(2025, time.December))
}

func TestClampedDate_CompressesIntoShortMonths(t *testing.T) {
	// Day 31 in February lands on the 28th (29th in leap years).
	assert.Equal(t, "2025-02-28", ledger.ClampedDate(2025, time.February, 31).String())
	assert.Equal(t, "2024-02-29", ledger.ClampedDate(2024, time.February, 31).String())
	assert.Equal(t, "2025-04-30", ledger.ClampedDate(2025, time.April, 31).String())
	assert.Equal(t, "2025-01-31", ledger.ClampedDate(2025, time.January, 31).String())
	assert.Equal(t, "2025-03-15", ledger.ClampedDate(2025, time.March, 15).String())
}

func TestNextMonth_WrapsYear(t *testing.T) {
	y, m := ledger.NextMonth(2025, time.December)
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.January, m)

	y, m = ledger.NextMonth(2025, time.June)
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.July, m)
}

func TestMonthOnOrBefore(t *testing.T) {
	assert.True(t, ledger.MonthOnOrBefore(2025, time.May, 2025, time.June))
	assert.True(t, ledger.MonthOnOrBefore(2025, time.June, 2025, time.June))
	assert.False(t, ledger.MonthOnOrBefore(2025, time.July, 2025, time.June))
	assert.True(t, ledger.MonthOnOrBefore(2024, time.December, 2025, time.January))
	assert.False(t, ledger.MonthOnOrBefore(2026, time.January, 2025, time.December))
}

func TestParseDate_RoundTrip(t *testing.T) {
	d, err := ledger.ParseDate("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", d.String())

	_, err = ledger.ParseDate("15/06/2025")
	assert.Error(t, err)
}
