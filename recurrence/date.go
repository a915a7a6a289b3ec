package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire.
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date. The Y-M-D is taken in t's own
// location and returned as midnight UTC; no zone conversion happens.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD, RFC 3339 timestamps and the iCalendar
// DATE / DATE-TIME forms, and returns the calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layouts := []string{
		DateLayout,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"20060102",
		"20060102T150405Z",
		"20060102T150405",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDates renders every date as YYYY-MM-DD.
func FormatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}

// addDays moves a UTC midnight date by n calendar days.
func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// daysBetween returns the number of calendar days from a to b; both must be
// UTC midnight dates.
func daysBetween(a, b time.Time) int {
	return int((b.Unix() - a.Unix()) / 86400)
}

// weekStart returns the Monday on or before t.
func weekStart(t time.Time) time.Time {
	delta := (int(t.Weekday()) + 6) % 7
	return addDays(t, -delta)
}

// ExceptionSet is an immutable set of excluded calendar dates. The zero
// value is an empty set.
type ExceptionSet struct {
	dates map[time.Time]struct{}
}

// NewExceptionSet builds a set from dates; time of day is ignored.
func NewExceptionSet(dates ...time.Time) ExceptionSet {
	set := ExceptionSet{dates: make(map[time.Time]struct{}, len(dates))}
	for _, d := range dates {
		set.dates[DateOf(d)] = struct{}{}
	}
	return set
}

// ParseExceptionSet parses date strings as accepted by ParseDate. Empty
// strings are skipped.
func ParseExceptionSet(values []string) (ExceptionSet, error) {
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		d, err := ParseDate(v)
		if err != nil {
			return ExceptionSet{}, fmt.Errorf("invalid exception date: %w", err)
		}
		dates = append(dates, d)
	}
	return NewExceptionSet(dates...), nil
}

// Contains reports whether t's calendar date is excluded.
func (s ExceptionSet) Contains(t time.Time) bool {
	if len(s.dates) == 0 {
		return false
	}
	_, ok := s.dates[DateOf(t)]
	return ok
}

// Len returns the number of distinct dates.
func (s ExceptionSet) Len() int {
	return len(s.dates)
}

// Dates returns the excluded dates in ascending order.
func (s ExceptionSet) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.dates))
	for d := range s.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
