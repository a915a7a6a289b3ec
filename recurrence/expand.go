package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// DefaultHorizonDays bounds how far past the anchor expansion may look.
const DefaultHorizonDays = 3650

// MaxHorizonDays is the largest look-ahead expansion honors; larger
// horizons are clamped.
const MaxHorizonDays = 100000

// ExpansionOptions controls how far a rule is expanded.
type ExpansionOptions struct {
	MaxCount    int // Maximum number of occurrences returned
	HorizonDays int // Look-ahead from the anchor in days, inclusive (<= 0 = DefaultHorizonDays, capped at MaxHorizonDays)
}

// DefaultExpansionOptions mirrors the "next 10 occurrences" preview.
var DefaultExpansionOptions = ExpansionOptions{
	MaxCount:    10,
	HorizonDays: DefaultHorizonDays,
}

// Generate expands rule from anchor with the default horizon.
func Generate(anchor time.Time, rule Rule, exceptions ExceptionSet, maxCount int) []time.Time {
	return Expand(anchor, rule, exceptions, ExpansionOptions{MaxCount: maxCount})
}

// Expand returns up to opts.MaxCount occurrence dates in ascending order.
//
// The first candidate is the anchor's calendar date. Excepted dates are
// skipped without counting towards MaxCount. Expansion stops at the rule's
// until date or at anchor+HorizonDays, whichever comes first, so the result
// may be shorter than MaxCount. The function is pure: it never mutates its
// inputs and always returns a non-nil slice.
func Expand(anchor time.Time, rule Rule, exceptions ExceptionSet, opts ExpansionOptions) []time.Time {
	return expand(anchor, rule, exceptions, opts, window{})
}

// Between returns the occurrences falling within [from, to] (calendar dates,
// inclusive), capped at maxCount, under the same until and horizon bounds
// as Expand.
func Between(anchor time.Time, rule Rule, exceptions ExceptionSet, from, to time.Time, maxCount int) []time.Time {
	w := window{from: someDate(from), to: someDate(to)}
	return expand(anchor, rule, exceptions, ExpansionOptions{MaxCount: maxCount}, w)
}

// window narrows expansion to a visible range.
type window struct {
	from mo.Option[time.Time]
	to   mo.Option[time.Time]
}

func someDate(t time.Time) mo.Option[time.Time] {
	return mo.Some(DateOf(t))
}

type collector struct {
	out        []time.Time
	max        int
	from       time.Time
	limit      time.Time
	span       int // days from the first candidate to limit
	exceptions ExceptionSet
}

func (c *collector) full() bool {
	return len(c.out) >= c.max
}

func (c *collector) beyond(d time.Time) bool {
	return d.After(c.limit)
}

func (c *collector) offer(d time.Time) {
	if d.Before(c.from) || c.exceptions.Contains(d) {
		return
	}
	c.out = append(c.out, d)
}

func expand(anchor time.Time, rule Rule, exceptions ExceptionSet, opts ExpansionOptions, w window) []time.Time {
	if rule == nil || opts.MaxCount <= 0 {
		return []time.Time{}
	}

	start := DateOf(anchor)
	horizon := opts.HorizonDays
	if horizon <= 0 {
		horizon = DefaultHorizonDays
	}
	horizon = min(horizon, MaxHorizonDays)

	limit := addDays(start, horizon)
	if until, ok := rule.Until().Get(); ok && until.Before(limit) {
		limit = until
	}
	if to, ok := w.to.Get(); ok && to.Before(limit) {
		limit = to
	}

	c := &collector{
		out:        make([]time.Time, 0, min(opts.MaxCount, 64)),
		max:        opts.MaxCount,
		from:       w.from.OrElse(start),
		limit:      limit,
		span:       daysBetween(start, limit),
		exceptions: exceptions,
	}

	switch r := rule.(type) {
	case *DailyRule:
		expandDaily(c, start, r)
	case *WeeklyRule:
		expandWeekly(c, start, r)
	case *MonthlyWeekdayRule:
		ord := r.ordinal
		expandMonthly(c, start, r.interval, func(y int, m time.Month) mo.Option[time.Time] {
			return NthWeekdayOfMonth(y, m, ord.Weekday.Time(), int(ord.Ordinal))
		})
	case *MonthlyDayRule:
		day := r.day
		expandMonthly(c, start, r.interval, func(y int, m time.Month) mo.Option[time.Time] {
			return monthDay(y, m, day)
		})
	}

	return c.out
}

func expandDaily(c *collector, start time.Time, r *DailyRule) {
	for cur := start; !c.full() && !c.beyond(cur); cur = addDays(cur, r.interval) {
		c.offer(cur)
		if r.interval > c.span {
			// the next step lands past the limit
			return
		}
	}
}

func expandWeekly(c *collector, start time.Time, r *WeeklyRule) {
	base := weekStart(start)
	cur := start
	for !c.full() && !c.beyond(cur) {
		week := weekStart(cur)
		if off := (daysBetween(base, week) / 7) % r.interval; off != 0 {
			skip := r.interval - off
			if skip > c.span/7+1 {
				return
			}
			// jump to the Monday of the next eligible week
			cur = addDays(week, 7*skip)
			continue
		}
		if r.has(WeekdayOf(cur.Weekday())) {
			c.offer(cur)
		}
		cur = addDays(cur, 1)
	}
}

// expandMonthly walks months anchor, anchor+interval, ... and asks pick for
// the candidate of each. Months without a candidate and candidates before
// the anchor are skipped without counting.
func expandMonthly(c *collector, start time.Time, interval int, pick func(int, time.Month) mo.Option[time.Time]) {
	// every month more than maxMonths past the anchor's begins after limit
	maxMonths := c.span/28 + 2
	for k := 0; !c.full(); k++ {
		if k > 0 && interval > maxMonths/k {
			return
		}
		month := time.Date(start.Year(), start.Month()+time.Month(k*interval), 1, 0, 0, 0, 0, time.UTC)
		if c.beyond(month) {
			return
		}
		candidate, ok := pick(month.Year(), month.Month()).Get()
		if !ok || candidate.Before(start) {
			continue
		}
		if c.beyond(candidate) {
			return
		}
		c.offer(candidate)
	}
}
