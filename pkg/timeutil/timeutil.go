// Package timeutil provides timezone and date-key utilities for Moyeo Study Hub.
// All study group members are located in Korea, so date boundaries are computed
// in Seoul time (UTC+9, no DST).
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// SeoulTZ is the Seoul timezone (UTC+9, no DST).
var SeoulTZ = time.FixedZone("Asia/Seoul", 9*60*60)

// FormatDate is the canonical date-key format (YYYY-MM-DD) used for all
// date-indexed records.
const FormatDate = "2006-01-02"

// Now returns the current time in Seoul timezone.
func Now() time.Time {
	return time.Now().In(SeoulTZ)
}

// ToSeoul converts a time to Seoul timezone.
func ToSeoul(t time.Time) time.Time {
	return t.In(SeoulTZ)
}

// Date creates a time in Seoul timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, SeoulTZ)
}

// DateKey formats a time as a date key (YYYY-MM-DD) in Seoul timezone.
func DateKey(t time.Time) string {
	return ToSeoul(t).Format(FormatDate)
}

// ParseDateKey parses a date key (YYYY-MM-DD) in Seoul timezone.
func ParseDateKey(key string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, key, SeoulTZ)
}

// TodayKey returns the date key for today.
func TodayKey() string {
	return DateKey(Now())
}

// StartOfDay returns the start of the day (00:00:00) in Seoul timezone.
func StartOfDay(t time.Time) time.Time {
	s := ToSeoul(t)
	return time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, SeoulTZ)
}

// StartOfWeek returns the start of the Sunday-based week containing t.
// Calendar views in the hub render Sunday-first, so the statistics window
// must agree with the calendar.
func StartOfWeek(t time.Time) time.Time {
	s := StartOfDay(t)
	return s.AddDate(0, 0, -int(s.Weekday()))
}

// EndOfWeek returns the Saturday ending the Sunday-based week containing t.
func EndOfWeek(t time.Time) time.Time {
	return StartOfWeek(t).AddDate(0, 0, 6)
}

// StartOfMonth returns the first day of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	s := ToSeoul(t)
	return time.Date(s.Year(), s.Month(), 1, 0, 0, 0, 0, SeoulTZ)
}

// EndOfMonth returns the last day of the month containing t.
func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// IsSameDay checks if two times are on the same day in Seoul timezone.
func IsSameDay(t1, t2 time.Time) bool {
	s1, s2 := ToSeoul(t1), ToSeoul(t2)
	return s1.Year() == s2.Year() && s1.YearDay() == s2.YearDay()
}

// DateKeysBetween returns the date keys for every day in [start, end]
// inclusive, in ascending order. Returns nil if end is before start.
func DateKeysBetween(start, end time.Time) []string {
	s := StartOfDay(start)
	e := StartOfDay(end)
	if e.Before(s) {
		return nil
	}

	keys := make([]string, 0, int(e.Sub(s).Hours()/24)+1)
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		keys = append(keys, d.Format(FormatDate))
	}
	return keys
}

// WeekKeys returns the seven date keys of the Sunday-based week containing t.
func WeekKeys(t time.Time) []string {
	return DateKeysBetween(StartOfWeek(t), EndOfWeek(t))
}

// MonthKeys returns the date keys of the calendar month containing t.
func MonthKeys(t time.Time) []string {
	return DateKeysBetween(StartOfMonth(t), EndOfMonth(t))
}

// PreviousDay returns the date key of the day before the given key.
// Malformed keys yield an empty string.
func PreviousDay(key string) string {
	t, err := ParseDateKey(key)
	if err != nil {
		return ""
	}
	return DateKey(t.AddDate(0, 0, -1))
}

// EpochMillis returns the epoch-millisecond representation used for
// schedule item creation timestamps.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromEpochMillis converts an epoch-millisecond timestamp to Seoul time.
func FromEpochMillis(ms int64) time.Time {
	return time.UnixMilli(ms).In(SeoulTZ)
}
