package reset

import (
	"fmt"

	"github.com/helpmebro911/panel/pkg/types"
)

// Schedule is the decoded form of a node's reset_time value. The
// stored integer is dual-encoded: -1 selects interval mode, any
// non-negative value is an absolute point within the strategy's cycle:
//
//	day:   seconds-of-day                        [0, 86400)
//	week:  day-of-week*86400 + seconds-of-day    [0, 604800)
//	month: day-of-month*86400 + seconds-of-day   (day capped at 28)
//	year:  day-of-year*86400 + seconds-of-day
//
// Decoding to an explicit variant keeps the sentinel out of the
// evaluation logic; Encode restores the stored representation.
type Schedule struct {
	// Interval selects interval mode: a reset is due once the
	// strategy's calendar-day interval has elapsed since the last
	// reset, regardless of time-of-day.
	Interval bool

	// Value is the absolute encoded target, valid when Interval is
	// false.
	Value int64
}

// DecodeSchedule decodes a stored reset_time value
func DecodeSchedule(resetTime int64) Schedule {
	if resetTime < 0 {
		return Schedule{Interval: true}
	}
	return Schedule{Value: resetTime}
}

// Encode returns the stored integer representation
func (s Schedule) Encode() int64 {
	if s.Interval {
		return -1
	}
	return s.Value
}

// TargetDay returns the day component of an absolute schedule
func (s Schedule) TargetDay() int64 {
	return s.Value / SecondsPerDay
}

// TargetSeconds returns the time-of-day component of an absolute schedule
func (s Schedule) TargetSeconds() int64 {
	return s.Value % SecondsPerDay
}

// ValidatePolicy checks a strategy/reset_time pair at node creation or
// modification time, so the evaluator never sees out-of-range input.
// Interval mode (-1) is valid for every strategy; no_reset accepts only
// -1.
func ValidatePolicy(strategy types.ResetStrategy, resetTime int64) error {
	switch strategy {
	case types.ResetStrategyNoReset:
		if resetTime != -1 {
			return fmt.Errorf("strategy no_reset requires reset_time -1, got %d", resetTime)
		}
		return nil
	case types.ResetStrategyDay, types.ResetStrategyWeek,
		types.ResetStrategyMonth, types.ResetStrategyYear:
	default:
		return fmt.Errorf("unknown reset strategy %q", strategy)
	}

	if resetTime == -1 {
		return nil
	}
	if resetTime < -1 {
		return fmt.Errorf("reset_time must be -1 or non-negative, got %d", resetTime)
	}

	sched := DecodeSchedule(resetTime)
	switch strategy {
	case types.ResetStrategyDay:
		if resetTime >= SecondsPerDay {
			return fmt.Errorf("daily reset_time must be below %d, got %d", SecondsPerDay, resetTime)
		}
	case types.ResetStrategyWeek:
		if resetTime >= SecondsPerWeek {
			return fmt.Errorf("weekly reset_time must be below %d, got %d", SecondsPerWeek, resetTime)
		}
	case types.ResetStrategyMonth:
		if day := sched.TargetDay(); day < 1 || day > 31 {
			return fmt.Errorf("monthly reset day must be 1-31, got %d", day)
		}
	case types.ResetStrategyYear:
		if day := sched.TargetDay(); day < 1 || day > 366 {
			return fmt.Errorf("yearly reset day must be 1-366, got %d", day)
		}
	}
	return nil
}
