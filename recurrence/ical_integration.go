package recurrence

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"
)

const propRecurrenceID = "RECURRENCE-ID"

// rruleDays is indexed by position in Weekdays (Monday first), matching
// rrule-go's day numbering.
var rruleDays = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}

func weekdayIndex(w Weekday) int {
	for i, d := range Weekdays {
		if d == w {
			return i
		}
	}
	return -1
}

// FormatRRULE renders rule as an RFC 5545 RRULE value (without the
// "RRULE:" prefix). UNTIL is written as a DATE value.
func FormatRRULE(rule Rule) string {
	if rule == nil {
		return ""
	}

	parts := []string{"FREQ=" + string(rule.Frequency())}
	if rule.Interval() > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", rule.Interval()))
	}

	switch r := rule.(type) {
	case *WeeklyRule:
		days := make([]string, len(r.days))
		for i, d := range r.days {
			days[i] = string(d)
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	case *MonthlyWeekdayRule:
		parts = append(parts, "BYDAY="+r.ordinal.String())
	case *MonthlyDayRule:
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", r.day))
	}

	if until, ok := rule.Until().Get(); ok {
		parts = append(parts, "UNTIL="+until.Format("20060102"))
	}
	return strings.Join(parts, ";")
}

// ParseRRULE parses an RRULE value with rrule-go and maps it onto a Rule.
// Only the DAILY/WEEKLY/MONTHLY subset expressible as a Rule is accepted;
// COUNT, BYSETPOS and friends are rejected with ErrIllegalField.
func ParseRRULE(value string) (Rule, error) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "RRULE:")
	if value == "" {
		return nil, invalid("freq", ErrMissingFrequency, "")
	}

	opt, err := rrule.StrToROption(value)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RRULE %q: %w", value, err)
	}

	switch {
	case opt.Count != 0:
		return nil, invalid("COUNT", ErrIllegalField, "unsupported")
	case len(opt.Bysetpos) > 0:
		return nil, invalid("BYSETPOS", ErrIllegalField, "unsupported")
	case len(opt.Bymonth) > 0:
		return nil, invalid("BYMONTH", ErrIllegalField, "unsupported")
	case len(opt.Byyearday) > 0:
		return nil, invalid("BYYEARDAY", ErrIllegalField, "unsupported")
	case len(opt.Byweekno) > 0:
		return nil, invalid("BYWEEKNO", ErrIllegalField, "unsupported")
	case len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0:
		return nil, invalid("BYHOUR", ErrIllegalField, "unsupported")
	}

	spec := RuleSpec{IntervalCount: opt.Interval}
	if !opt.Until.IsZero() {
		spec.Until = FormatDate(opt.Until)
	}

	byDay := make([]string, 0, len(opt.Byweekday))
	for i := range opt.Byweekday {
		wd := &opt.Byweekday[i]
		tok := string(Weekdays[wd.Day()])
		if n := wd.N(); n != 0 {
			tok = fmt.Sprintf("%d%s", n, tok)
		}
		byDay = append(byDay, tok)
	}

	switch opt.Freq {
	case rrule.DAILY:
		spec.Freq = string(Daily)
	case rrule.WEEKLY:
		spec.Freq = string(Weekly)
	case rrule.MONTHLY:
		spec.Freq = string(Monthly)
		if len(byDay)+len(opt.Bymonthday) != 1 {
			return nil, invalid("BYDAY", ErrMissingMonthlyAnchor, "exactly one of BYDAY or BYMONTHDAY with a single value is supported")
		}
	default:
		return nil, invalid("freq", ErrUnknownFrequency, fmt.Sprintf("%v", opt.Freq))
	}
	spec.ByDay = byDay
	spec.ByMonthDay = opt.Bymonthday

	return spec.Build()
}

// ToROption converts rule into rrule-go options anchored at anchor's
// calendar date. The result can be handed to rrule.NewRRule to expand the
// same series with an independent implementation.
func ToROption(anchor time.Time, rule Rule) (rrule.ROption, error) {
	if rule == nil {
		return rrule.ROption{}, errors.New("rule is required")
	}

	opt := rrule.ROption{
		Dtstart:  DateOf(anchor),
		Interval: rule.Interval(),
		Wkst:     rrule.MO,
	}
	if until, ok := rule.Until().Get(); ok {
		opt.Until = until
	}

	switch r := rule.(type) {
	case *DailyRule:
		opt.Freq = rrule.DAILY
	case *WeeklyRule:
		opt.Freq = rrule.WEEKLY
		for _, d := range r.days {
			opt.Byweekday = append(opt.Byweekday, rruleDays[weekdayIndex(d)])
		}
	case *MonthlyWeekdayRule:
		opt.Freq = rrule.MONTHLY
		day := rruleDays[weekdayIndex(r.ordinal.Weekday)]
		opt.Byweekday = []rrule.Weekday{day.Nth(int(r.ordinal.Ordinal))}
	case *MonthlyDayRule:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday = []int{r.day}
	default:
		return rrule.ROption{}, fmt.Errorf("unsupported rule type %T", rule)
	}
	return opt, nil
}

// Series is a recurring event as stored in an iCalendar component.
type Series struct {
	UID        string
	Summary    string
	Anchor     time.Time
	Rule       Rule // nil for a single event
	Exceptions ExceptionSet
}

// FromComponent extracts DTSTART, RRULE and EXDATE from a VEVENT.
func FromComponent(comp *ical.Component) (Series, error) {
	if comp == nil {
		return Series{}, errors.New("component is required")
	}

	var series Series
	series.UID, _ = comp.Props.Text(ical.PropUID)
	series.Summary, _ = comp.Props.Text(ical.PropSummary)

	dtstart := comp.Props.Get(ical.PropDateTimeStart)
	if dtstart == nil || dtstart.Value == "" {
		return Series{}, fmt.Errorf("component %s has no DTSTART", comp.Name)
	}
	anchor, err := ParseDate(dtstart.Value)
	if err != nil {
		return Series{}, fmt.Errorf("invalid DTSTART: %w", err)
	}
	series.Anchor = anchor

	if rruleProp := comp.Props.Get(ical.PropRecurrenceRule); rruleProp != nil && rruleProp.Value != "" {
		rule, err := ParseRRULE(rruleProp.Value)
		if err != nil {
			return Series{}, err
		}
		series.Rule = rule
	}

	var exdates []string
	for _, prop := range comp.Props[ical.PropExceptionDates] {
		exdates = append(exdates, strings.Split(prop.Value, ",")...)
	}
	series.Exceptions, err = ParseExceptionSet(exdates)
	if err != nil {
		return Series{}, err
	}

	return series, nil
}

// Event builds a VEVENT carrying the series as an all-day recurring event.
func (s Series) Event(stamp time.Time) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, s.UID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if s.Summary != "" {
		event.Props.SetText(ical.PropSummary, s.Summary)
	}
	event.Props.SetDate(ical.PropDateTimeStart, s.Anchor)

	if s.Rule != nil {
		prop := ical.NewProp(ical.PropRecurrenceRule)
		prop.Value = FormatRRULE(s.Rule)
		event.Props.Add(prop)
	}

	if s.Exceptions.Len() > 0 {
		values := make([]string, 0, s.Exceptions.Len())
		for _, d := range s.Exceptions.Dates() {
			values = append(values, d.Format("20060102"))
		}
		prop := ical.NewProp(ical.PropExceptionDates)
		prop.Params.Set("VALUE", "DATE")
		prop.Value = strings.Join(values, ",")
		event.Props.Add(prop)
	}

	return event
}

// OccurrenceCalendar builds a VCALENDAR with one all-day VEVENT per date.
// Each instance carries a RECURRENCE-ID so clients can relate it to the
// series UID.
func OccurrenceCalendar(s Series, dates []time.Time, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//librecur//NONSGML v1.0//EN")

	for _, d := range dates {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, s.UID)
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
		if s.Summary != "" {
			event.Props.SetText(ical.PropSummary, s.Summary)
		}
		event.Props.SetDate(ical.PropDateTimeStart, d)
		event.Props.SetDate(ical.PropDateTimeEnd, addDays(d, 1))
		event.Props.SetDate(propRecurrenceID, d)
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// EncodeCalendar serializes cal to iCalendar text.
func EncodeCalendar(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("failed to encode calendar: %w", err)
	}
	return buf.Bytes(), nil
}
