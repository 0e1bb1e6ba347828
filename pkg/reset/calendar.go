package reset

import (
	"time"

	"github.com/helpmebro911/panel/pkg/types"
)

const (
	// SecondsPerDay is the number of seconds in one calendar day
	SecondsPerDay = 86400

	// SecondsPerWeek is the number of seconds in one calendar week
	SecondsPerWeek = 7 * SecondsPerDay

	// MaxMonthDay caps the targetable day-of-month so an absolute
	// month schedule stays valid across all month lengths. A policy
	// encoding day 29-31 is silently mapped down to 28.
	MaxMonthDay = 28
)

// IntervalDays returns the calendar-day interval an interval-mode
// schedule waits between resets for the given strategy. The second
// return value is false for strategies without an interval (no_reset).
func IntervalDays(strategy types.ResetStrategy) (int, bool) {
	switch strategy {
	case types.ResetStrategyDay:
		return 1, true
	case types.ResetStrategyWeek:
		return 7, true
	case types.ResetStrategyMonth:
		return 30, true
	case types.ResetStrategyYear:
		return 365, true
	default:
		return 0, false
	}
}

// CalendarDaysBetween returns the whole calendar-day difference between
// two instants in UTC. Time-of-day is discarded on both sides, so a
// reset at 23:59 followed by an evaluation at 00:01 counts as one day.
func CalendarDaysBetween(now, since time.Time) int {
	a := dateOf(now)
	b := dateOf(since)
	return int(a.Sub(b) / (24 * time.Hour))
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// secondsOfDay returns the seconds elapsed since UTC midnight
func secondsOfDay(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Hour())*3600 + int64(t.Minute())*60 + int64(t.Second())
}

// weekSeconds returns the seconds elapsed since the start of the UTC
// week. Weeks start on Sunday, matching time.Weekday numbering.
func weekSeconds(t time.Time) int64 {
	t = t.UTC()
	return int64(t.Weekday())*SecondsPerDay + secondsOfDay(t)
}
