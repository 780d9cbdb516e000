// Package timeutil converts between wall-clock strings, minutes since
// midnight and absolute timestamps.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay is the exclusive upper bound of a minute-of-day value.
const MinutesPerDay = 24 * 60

var ErrMalformedTime = errors.New("malformed time of day")

// ParseError reports an "HH:MM" string that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse time %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrMalformedTime
}

// TimeToMinutes parses "HH:MM" into minutes since midnight (0-1439).
func TimeToMinutes(hhmm string) (int, error) {
	hourStr, minStr, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, &ParseError{Input: hhmm, Reason: "missing colon"}
	}

	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return 0, &ParseError{Input: hhmm, Reason: "hour is not a number"}
	}
	minute, err := strconv.Atoi(minStr)
	if err != nil {
		return 0, &ParseError{Input: hhmm, Reason: "minute is not a number"}
	}

	if hour < 0 || hour > 23 {
		return 0, &ParseError{Input: hhmm, Reason: "hour out of range"}
	}
	if minute < 0 || minute > 59 {
		return 0, &ParseError{Input: hhmm, Reason: "minute out of range"}
	}

	return hour*60 + minute, nil
}

// MinutesToTimeString formats minutes since midnight as "HH:MM".
// Values outside [0, 1440) wrap around the day, so 1440 is "00:00" and
// -15 is "23:45".
func MinutesToTimeString(minutes int) string {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// CombineDateTime returns the instant with date's year, month and day and
// clock's hour and minute, in date's location. Seconds are zeroed.
func CombineDateTime(date, clock time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, date.Location())
}

// AtMinutes returns the wall-clock time minutes past midnight on date's day,
// in date's location. 1440 yields midnight of the following day.
func AtMinutes(date time.Time, minutes int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), 0, minutes, 0, 0, date.Location())
}

// MinutesOfDay returns the minutes elapsed since midnight of t's day.
func MinutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// WallMinutesSince returns t as wall-clock minutes relative to midnight of
// day, in day's location: negative before that day, 1440 or more after it.
func WallMinutesSince(day, t time.Time) int {
	t = t.In(day.Location())
	y, m, d := day.Date()
	ty, tm, td := t.Date()
	days := int(time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Sub(time.Date(y, m, d, 0, 0, 0, 0, time.UTC)).Hours() / 24)
	return days*MinutesPerDay + MinutesOfDay(t)
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns midnight of the day after t, which is 24:00 of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
