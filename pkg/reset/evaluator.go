package reset

import (
	"time"

	"github.com/helpmebro911/panel/pkg/types"
)

// IsDue decides whether a node's usage counters must be reset now,
// given its strategy, decoded schedule, and the time of its last reset.
// Both instants are normalized to UTC before any calendar arithmetic;
// inputs are assumed validated at node creation/modification time.
func IsDue(strategy types.ResetStrategy, sched Schedule, lastReset, now time.Time) bool {
	if strategy == types.ResetStrategyNoReset {
		return false
	}

	now = now.UTC()
	lastReset = lastReset.UTC()

	if sched.Interval {
		days, ok := IntervalDays(strategy)
		if !ok {
			return false
		}
		return CalendarDaysBetween(now, lastReset) >= days
	}

	switch strategy {
	case types.ResetStrategyDay:
		return dueDaily(sched, lastReset, now)
	case types.ResetStrategyWeek:
		return dueWeekly(sched, lastReset, now)
	case types.ResetStrategyMonth:
		return dueMonthly(sched, lastReset, now)
	case types.ResetStrategyYear:
		return dueYearly(sched, lastReset, now)
	default:
		return false
	}
}

// dueDaily fires once per day after the target time-of-day has passed.
// The last-reset guard prevents re-firing on the same day after a
// successful reset while still firing on the correct day when the
// previous reset happened late.
func dueDaily(sched Schedule, lastReset, now time.Time) bool {
	target := sched.Value

	if secondsOfDay(now) < target {
		return false
	}
	return dateOf(now).After(dateOf(lastReset)) || secondsOfDay(lastReset) < target
}

// dueWeekly fires once per week after the target weekday/time has
// passed and at least seven calendar days have elapsed. When more than
// seven days elapsed (a cycle was skipped between ticks), the daysDiff
// branch re-arms the check once; intermediate cycles are skipped, not
// replayed.
func dueWeekly(sched Schedule, lastReset, now time.Time) bool {
	target := sched.Value
	daysDiff := CalendarDaysBetween(now, lastReset)

	if daysDiff < 7 {
		return false
	}
	if weekSeconds(now) < target {
		return false
	}
	return weekSeconds(lastReset) < target || daysDiff > 7
}

// dueMonthly fires once per month after the target day-of-month/time
// has passed. The target day is capped at 28 so the schedule remains
// reachable in February; a policy encoding day 29-31 can never target
// those days.
func dueMonthly(sched Schedule, lastReset, now time.Time) bool {
	targetDay := sched.TargetDay()
	if targetDay > MaxMonthDay {
		targetDay = MaxMonthDay
	}
	targetSeconds := sched.TargetSeconds()

	curDay := int64(now.Day())
	curSeconds := secondsOfDay(now)

	reached := curDay > targetDay || (curDay == targetDay && curSeconds >= targetSeconds)
	if !reached {
		return false
	}

	if now.Year() > lastReset.Year() {
		return true
	}
	if now.Month() > lastReset.Month() {
		return true
	}
	if now.Month() != lastReset.Month() {
		return false
	}

	lastDay := int64(lastReset.Day())
	lastSeconds := secondsOfDay(lastReset)
	return lastDay < targetDay || (lastDay == targetDay && lastSeconds < targetSeconds)
}

// dueYearly fires once per year after the target day-of-year/time has
// passed. Unlike the monthly rule there is no day cap.
func dueYearly(sched Schedule, lastReset, now time.Time) bool {
	targetDay := sched.TargetDay()
	targetSeconds := sched.TargetSeconds()

	curDay := int64(now.YearDay())
	curSeconds := secondsOfDay(now)

	reached := curDay > targetDay || (curDay == targetDay && curSeconds >= targetSeconds)
	if !reached {
		return false
	}

	if now.Year() > lastReset.Year() {
		return true
	}
	return now.Year() == lastReset.Year() && int64(lastReset.YearDay()) < targetDay
}
