package ledger_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/timecomp/ledger"
)

func TestDate_Ordering(t *testing.T) {
	a := ledger.NewDate(2026, time.February, 28)
	b := a.AddDays(1)

	assert.Equal(t, ledger.NewDate(2026, time.March, 1), b, "leap-adjacent rollover")
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.Equal(b))
	assert.Equal(t, "2026-02-28", a.String())
}

func TestDateOf_UsesTimestampLocation(t *testing.T) {
	// 01:30 in UTC+9 is still that calendar day locally even though it is
	// the previous day in UTC.
	loc := time.FixedZone("UTC+9", 9*3600)
	at := time.Date(2026, time.March, 2, 1, 30, 0, 0, loc)

	assert.Equal(t, ledger.NewDate(2026, time.March, 2), ledger.DateOf(at))
	assert.Equal(t, ledger.NewDate(2026, time.March, 2), ledger.DateOf(at.UTC()).AddDays(1))
}

func TestParseDate(t *testing.T) {
	d, err := ledger.ParseDate("2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, ledger.NewDate(2026, time.March, 2), d)

	_, err = ledger.ParseDate("02/03/2026")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestMonthRange(t *testing.T) {
	first, last := ledger.MonthRange(2026, time.February)
	assert.Equal(t, ledger.NewDate(2026, time.February, 1), first)
	assert.Equal(t, ledger.NewDate(2026, time.February, 28), last)

	_, last = ledger.MonthRange(2024, time.February)
	assert.Equal(t, ledger.NewDate(2024, time.February, 29), last, "leap year")

	_, last = ledger.MonthRange(2026, time.December)
	assert.Equal(t, ledger.NewDate(2026, time.December, 31), last, "year rollover")
}

func TestTimeOfDay_ParseAndAnchor(t *testing.T) {
	tod, err := ledger.ParseTimeOfDay("09:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", tod.String())

	at := tod.On(ledger.NewDate(2026, time.March, 2), time.UTC)
	assert.Equal(t, time.Date(2026, time.March, 2, 9, 5, 0, 0, time.UTC), at)

	_, err = ledger.ParseTimeOfDay("25:00")
	assert.ErrorIs(t, err, ledger.ErrValidation)
}

func TestHoursOf_FullPrecision(t *testing.T) {
	assert.True(t, ledger.HoursOf(8*time.Hour+45*time.Minute).Equal(decimal.RequireFromString("8.75")))
	assert.True(t, ledger.HoursOf(0).IsZero())

	// 9 hours against the 8-hour day gives exactly 1.125 days.
	days := ledger.HoursOf(9 * time.Hour).Div(ledger.EightHours)
	assert.True(t, days.Equal(decimal.RequireFromString("1.125")))
}
