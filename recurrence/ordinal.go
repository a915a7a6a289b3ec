package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// NthWeekdayOfMonth returns the ordinal-th weekday of the given month.
// Positive ordinals count from the 1st, negative ones from the last day
// (-1 is the last such weekday). None means the month has no such date,
// e.g. a fifth Monday in a month with four; ordinal 0 is always None.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, ordinal int) mo.Option[time.Time] {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	var candidate time.Time
	switch {
	case ordinal > 0:
		delta := (int(weekday) - int(first.Weekday()) + 7) % 7
		candidate = addDays(first, delta+(ordinal-1)*7)
	case ordinal < 0:
		delta := (int(last.Weekday()) - int(weekday) + 7) % 7
		candidate = addDays(last, -delta+(ordinal+1)*7)
	default:
		return mo.None[time.Time]()
	}

	if candidate.Year() != year || candidate.Month() != month {
		return mo.None[time.Time]()
	}
	return mo.Some(candidate)
}

// monthDay returns the given day of the month, or None when the month is
// shorter.
func monthDay(year int, month time.Month, day int) mo.Option[time.Time] {
	candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if candidate.Month() != month {
		return mo.None[time.Time]()
	}
	return mo.Some(candidate)
}
