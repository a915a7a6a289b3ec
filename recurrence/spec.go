package recurrence

import (
	"fmt"
	"strings"
)

// RuleSpec is the untyped rule shape exchanged with the schedule API.
// Build turns it into a Rule; this is the only place wire values are
// validated. JSON keys match case-insensitively, so "byMonthDay" decodes
// into ByMonthDay as well.
type RuleSpec struct {
	Freq          string   `json:"freq"`
	IntervalCount int      `json:"intervalCount,omitempty"`
	ByDay         []string `json:"byDay,omitempty"`
	ByMonthDay    []int    `json:"byMonthday,omitempty"`
	Until         string   `json:"until,omitempty"`
}

// Build validates the spec and returns the typed rule.
//
// For MONTHLY, a non-empty ByDay wins over ByMonthDay and its first entry
// must be an ordinal weekday token.
func (s RuleSpec) Build() (Rule, error) {
	freq := Frequency(strings.ToUpper(strings.TrimSpace(s.Freq)))
	if freq == "" {
		return nil, invalid("freq", ErrMissingFrequency, "")
	}

	interval := s.IntervalCount
	if interval == 0 {
		interval = 1
	}
	opts := []RuleOption{WithInterval(interval)}
	if strings.TrimSpace(s.Until) != "" {
		until, err := ParseDate(s.Until)
		if err != nil {
			return nil, invalid("until", ErrInvalidUntil, err.Error())
		}
		opts = append(opts, WithUntil(until))
	}

	byDay := nonEmpty(s.ByDay)

	switch freq {
	case Daily:
		if len(byDay) > 0 {
			return nil, invalid("byDay", ErrIllegalField, "DAILY")
		}
		if len(s.ByMonthDay) > 0 {
			return nil, invalid("byMonthday", ErrIllegalField, "DAILY")
		}
		return built[*DailyRule](NewDaily(opts...))

	case Weekly:
		if len(s.ByMonthDay) > 0 {
			return nil, invalid("byMonthday", ErrIllegalField, "WEEKLY")
		}
		if len(byDay) == 0 {
			return nil, invalid("byDay", ErrEmptyByDay, "")
		}
		days := make([]Weekday, 0, len(byDay))
		for _, tok := range byDay {
			d, err := ParseWeekday(tok)
			if err != nil {
				return nil, invalid("byDay", err, "")
			}
			days = append(days, d)
		}
		return built[*WeeklyRule](NewWeekly(days, opts...))

	case Monthly:
		if len(byDay) > 0 {
			ord, err := ParseOrdinalWeekday(byDay[0])
			if err != nil {
				return nil, invalid("byDay", err, "")
			}
			return built[*MonthlyWeekdayRule](NewMonthlyByWeekday(ord, opts...))
		}
		if len(s.ByMonthDay) > 0 {
			return built[*MonthlyDayRule](NewMonthlyByDay(s.ByMonthDay[0], opts...))
		}
		return nil, invalid("freq", ErrMissingMonthlyAnchor, "")

	default:
		return nil, invalid("freq", ErrUnknownFrequency, fmt.Sprintf("%q", s.Freq))
	}
}

// SpecOf renders a rule back into its wire shape. A nil rule yields the
// zero spec.
func SpecOf(r Rule) RuleSpec {
	if r == nil {
		return RuleSpec{}
	}
	spec := RuleSpec{
		Freq:          string(r.Frequency()),
		IntervalCount: r.Interval(),
	}
	if until, ok := r.Until().Get(); ok {
		spec.Until = FormatDate(until)
	}
	switch rule := r.(type) {
	case *WeeklyRule:
		for _, d := range rule.days {
			spec.ByDay = append(spec.ByDay, string(d))
		}
	case *MonthlyWeekdayRule:
		spec.ByDay = []string{rule.ordinal.String()}
	case *MonthlyDayRule:
		spec.ByMonthDay = []int{rule.day}
	}
	return spec
}

// built keeps a failed constructor from leaking a typed nil into Rule.
func built[R Rule](r R, err error) (Rule, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}

func nonEmpty(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
