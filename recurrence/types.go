package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"
)

// Frequency is the base recurrence period.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
)

// Rule is a validated recurrence rule. The concrete types are DailyRule,
// WeeklyRule, MonthlyWeekdayRule and MonthlyDayRule; each only carries the
// fields meaningful for its frequency.
type Rule interface {
	Frequency() Frequency
	// Interval is the step between periods, always >= 1.
	Interval() int
	// Until is the inclusive last calendar date, if any.
	Until() mo.Option[time.Time]

	sealed()
}

// Validation sentinels, matched through errors.Is on a *ValidationError.
var (
	ErrMissingFrequency     = errors.New("frequency is required")
	ErrUnknownFrequency     = errors.New("unrecognized frequency")
	ErrInvalidInterval      = errors.New("interval must be at least 1")
	ErrEmptyByDay           = errors.New("weekly rule requires at least one weekday")
	ErrMissingMonthlyAnchor = errors.New("monthly rule requires an ordinal weekday or a day of month")
	ErrInvalidMonthDay      = errors.New("day of month must be within 1..31")
	ErrIllegalField         = errors.New("field not allowed for frequency")
	ErrInvalidUntil         = errors.New("invalid until date")
)

// ValidationError reports a rule that cannot be constructed.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid recurrence %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid recurrence %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error, reason string) error {
	return &ValidationError{Field: field, Reason: reason, Err: err}
}

// RuleOption configures the fields shared by every rule.
type RuleOption func(*base)

// WithInterval sets the step between periods. Defaults to 1.
func WithInterval(n int) RuleOption {
	return func(b *base) {
		b.interval = n
	}
}

// WithUntil sets the inclusive end date. Time of day is dropped.
func WithUntil(until time.Time) RuleOption {
	return func(b *base) {
		b.until = mo.Some(DateOf(until))
	}
}

type base struct {
	interval int
	until    mo.Option[time.Time]
}

func (b base) Interval() int { return b.interval }

func (b base) Until() mo.Option[time.Time] { return b.until }

func (base) sealed() {}

func newBase(opts []RuleOption) (base, error) {
	b := base{interval: 1, until: mo.None[time.Time]()}
	for _, opt := range opts {
		opt(&b)
	}
	if b.interval < 1 {
		return base{}, invalid("intervalCount", ErrInvalidInterval, fmt.Sprintf("got %d", b.interval))
	}
	return b, nil
}

// DailyRule repeats every Interval days.
type DailyRule struct {
	base
}

// NewDaily builds a daily rule.
func NewDaily(opts ...RuleOption) (*DailyRule, error) {
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	return &DailyRule{base: b}, nil
}

func (*DailyRule) Frequency() Frequency { return Daily }

// WeeklyRule repeats on a set of weekdays every Interval weeks. Weeks start
// on Monday.
type WeeklyRule struct {
	base
	days []Weekday
}

// NewWeekly builds a weekly rule. Duplicate days are dropped, first
// occurrence wins.
func NewWeekly(days []Weekday, opts ...RuleOption) (*WeeklyRule, error) {
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	seen := make(map[Weekday]bool, len(days))
	unique := make([]Weekday, 0, len(days))
	for _, d := range days {
		if !d.Valid() {
			return nil, invalid("byDay", &ParseError{Token: string(d), Reason: "unknown weekday"}, "")
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		unique = append(unique, d)
	}
	if len(unique) == 0 {
		return nil, invalid("byDay", ErrEmptyByDay, "")
	}
	return &WeeklyRule{base: b, days: unique}, nil
}

func (*WeeklyRule) Frequency() Frequency { return Weekly }

// Days returns a copy of the active weekdays.
func (r *WeeklyRule) Days() []Weekday {
	return append([]Weekday(nil), r.days...)
}

func (r *WeeklyRule) has(d Weekday) bool {
	for _, x := range r.days {
		if x == d {
			return true
		}
	}
	return false
}

// MonthlyWeekdayRule repeats on the nth weekday of every Interval months.
type MonthlyWeekdayRule struct {
	base
	ordinal OrdinalWeekday
}

// NewMonthlyByWeekday builds an ordinal-weekday monthly rule.
func NewMonthlyByWeekday(ord OrdinalWeekday, opts ...RuleOption) (*MonthlyWeekdayRule, error) {
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	if !ord.Weekday.Valid() || ord.Ordinal == 0 || ord.Ordinal < -5 || ord.Ordinal > 5 {
		return nil, invalid("byDay", &ParseError{Token: ord.String(), Reason: "ordinal must be nonzero and within -5..5"}, "")
	}
	return &MonthlyWeekdayRule{base: b, ordinal: ord}, nil
}

func (*MonthlyWeekdayRule) Frequency() Frequency { return Monthly }

// Ordinal returns the weekday selector.
func (r *MonthlyWeekdayRule) Ordinal() OrdinalWeekday { return r.ordinal }

// MonthlyDayRule repeats on a fixed day of every Interval months. Months
// without that day are skipped.
type MonthlyDayRule struct {
	base
	day int
}

// NewMonthlyByDay builds a day-of-month monthly rule.
func NewMonthlyByDay(day int, opts ...RuleOption) (*MonthlyDayRule, error) {
	b, err := newBase(opts)
	if err != nil {
		return nil, err
	}
	if day < 1 || day > 31 {
		return nil, invalid("byMonthday", ErrInvalidMonthDay, fmt.Sprintf("got %d", day))
	}
	return &MonthlyDayRule{base: b, day: day}, nil
}

func (*MonthlyDayRule) Frequency() Frequency { return Monthly }

// Day returns the day of month.
func (r *MonthlyDayRule) Day() int { return r.day }
