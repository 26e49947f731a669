package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateKey_SeoulBoundary(t *testing.T) {
	// 2026-03-09 23:30 UTC is already 2026-03-10 08:30 in Seoul.
	utc := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-10", DateKey(utc))

	seoul := time.Date(2026, 3, 10, 0, 0, 0, 0, SeoulTZ)
	assert.Equal(t, "2026-03-10", DateKey(seoul))
}

func TestParseDateKey_RoundTrip(t *testing.T) {
	parsed, err := ParseDateKey("2026-08-15")
	assert.NoError(t, err)
	assert.Equal(t, "2026-08-15", DateKey(parsed))
	assert.Equal(t, SeoulTZ.String(), parsed.Location().String())

	_, err = ParseDateKey("not-a-date")
	assert.Error(t, err)
}

func TestStartOfWeek_SundayBased(t *testing.T) {
	// 2026-08-26 is a Wednesday; the week starts Sunday 2026-08-23.
	wed := Date(2026, 8, 26)
	assert.Equal(t, "2026-08-23", DateKey(StartOfWeek(wed)))
	assert.Equal(t, "2026-08-29", DateKey(EndOfWeek(wed)))

	// A Sunday is its own week start.
	sun := Date(2026, 8, 23)
	assert.Equal(t, "2026-08-23", DateKey(StartOfWeek(sun)))
}

func TestMonthWindow(t *testing.T) {
	d := Date(2026, 2, 14)
	assert.Equal(t, "2026-02-01", DateKey(StartOfMonth(d)))
	assert.Equal(t, "2026-02-28", DateKey(EndOfMonth(d)))
	assert.Len(t, MonthKeys(d), 28)
}

func TestDateKeysBetween(t *testing.T) {
	keys := DateKeysBetween(Date(2026, 8, 30), Date(2026, 9, 2))
	assert.Equal(t, []string{"2026-08-30", "2026-08-31", "2026-09-01", "2026-09-02"}, keys)

	assert.Equal(t, []string{"2026-08-30"}, DateKeysBetween(Date(2026, 8, 30), Date(2026, 8, 30)))
	assert.Nil(t, DateKeysBetween(Date(2026, 9, 2), Date(2026, 8, 30)))
}

func TestWeekKeys(t *testing.T) {
	keys := WeekKeys(Date(2026, 8, 26))
	assert.Len(t, keys, 7)
	assert.Equal(t, "2026-08-23", keys[0])
	assert.Equal(t, "2026-08-29", keys[6])
}

func TestPreviousDay(t *testing.T) {
	assert.Equal(t, "2026-02-28", PreviousDay("2026-03-01"))
	assert.Equal(t, "2025-12-31", PreviousDay("2026-01-01"))
	assert.Equal(t, "", PreviousDay("garbage"))
}

func TestEpochMillis_RoundTrip(t *testing.T) {
	now := Date(2026, 8, 29).Add(13*time.Hour + 45*time.Minute)
	ms := EpochMillis(now)
	assert.True(t, now.Equal(FromEpochMillis(ms)))
}

func TestIsSameDay(t *testing.T) {
	a := time.Date(2026, 8, 29, 23, 0, 0, 0, SeoulTZ)
	b := time.Date(2026, 8, 29, 1, 0, 0, 0, SeoulTZ)
	assert.True(t, IsSameDay(a, b))

	// 15:30 UTC and 14:30 UTC straddle midnight in Seoul.
	c := time.Date(2026, 8, 29, 15, 30, 0, 0, time.UTC)
	d := time.Date(2026, 8, 29, 14, 30, 0, 0, time.UTC)
	assert.False(t, IsSameDay(c, d))
}
