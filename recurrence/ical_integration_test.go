package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestFormatRRULE(t *testing.T) {
	tests := []struct {
		spec RuleSpec
		want string
	}{
		{RuleSpec{Freq: "DAILY"}, "FREQ=DAILY"},
		{RuleSpec{Freq: "DAILY", IntervalCount: 2}, "FREQ=DAILY;INTERVAL=2"},
		{RuleSpec{Freq: "WEEKLY", IntervalCount: 2, ByDay: []string{"MO", "WE"}, Until: "2025-06-30"}, "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;UNTIL=20250630"},
		{RuleSpec{Freq: "MONTHLY", ByDay: []string{"-1FR"}}, "FREQ=MONTHLY;BYDAY=-1FR"},
		{RuleSpec{Freq: "MONTHLY", ByMonthDay: []int{15}}, "FREQ=MONTHLY;BYMONTHDAY=15"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rule := mustBuild(t, tt.spec)
			got := FormatRRULE(rule)
			assert.Equal(t, tt.want, got)

			parsed, err := ParseRRULE("RRULE:" + got)
			require.NoError(t, err)
			assert.Equal(t, SpecOf(rule), SpecOf(parsed))
		})
	}
	assert.Empty(t, FormatRRULE(nil))
}

func TestParseRRULE_Rejects(t *testing.T) {
	tests := []struct {
		value string
		want  error
	}{
		{"", ErrMissingFrequency},
		{"FREQ=DAILY;COUNT=5", ErrIllegalField},
		{"FREQ=MONTHLY;BYDAY=2MO;BYSETPOS=1", ErrIllegalField},
		{"FREQ=YEARLY", ErrUnknownFrequency},
		{"FREQ=MONTHLY", ErrMissingMonthlyAnchor},
		{"FREQ=MONTHLY;BYDAY=1MO,3MO", ErrMissingMonthlyAnchor},
		{"FREQ=WEEKLY", ErrEmptyByDay},
		{"FREQ=MONTHLY;BYDAY=MO", ErrMalformedToken},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			_, err := ParseRRULE(tt.value)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := ParseRRULE("FREQ=SOMETIMES")
	assert.Error(t, err)
}

// TestExpand_MatchesRRuleGo expands the same series with rrule-go and
// compares the dates.
func TestExpand_MatchesRRuleGo(t *testing.T) {
	specs := []RuleSpec{
		{Freq: "DAILY", IntervalCount: 3},
		{Freq: "WEEKLY", ByDay: []string{"MO", "WE", "FR"}},
		{Freq: "WEEKLY", IntervalCount: 2, ByDay: []string{"TU", "SU"}},
		{Freq: "WEEKLY", IntervalCount: 3, ByDay: []string{"MO"}},
		{Freq: "MONTHLY", ByDay: []string{"2MO"}},
		{Freq: "MONTHLY", IntervalCount: 2, ByDay: []string{"-1FR"}},
		{Freq: "MONTHLY", ByDay: []string{"5TH"}},
		{Freq: "MONTHLY", ByMonthDay: []int{31}},
		{Freq: "MONTHLY", IntervalCount: 4, ByMonthDay: []int{29}},
		{Freq: "WEEKLY", ByDay: []string{"SA"}, Until: "2025-04-12"},
	}
	anchors := []time.Time{date(2025, 1, 8), date(2024, 2, 29), date(2025, 12, 31)}
	const n = 40

	for _, spec := range specs {
		rule := mustBuild(t, spec)
		for _, anchor := range anchors {
			opt, err := ToROption(anchor, rule)
			require.NoError(t, err)
			if rule.Until().IsAbsent() {
				opt.Count = n
			}
			rr, err := rrule.NewRRule(opt)
			require.NoError(t, err)

			horizon := addDays(anchor, DefaultHorizonDays)
			want := []string{}
			for _, d := range rr.All() {
				if len(want) == n || d.After(horizon) {
					break
				}
				want = append(want, FormatDate(d))
			}
			got := FormatDates(Generate(anchor, rule, ExceptionSet{}, n))
			assert.Equal(t, want, got, "%s from %s", FormatRRULE(rule), FormatDate(anchor))
		}
	}
}

func TestFromComponent(t *testing.T) {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, "standup@example.com")
	comp.Props.SetText(ical.PropSummary, "Standup")
	comp.Props.SetDateTime(ical.PropDateTimeStart, time.Date(2025, 1, 6, 9, 30, 0, 0, time.UTC))

	rr := ical.NewProp(ical.PropRecurrenceRule)
	rr.Value = "FREQ=WEEKLY;BYDAY=MO,TH"
	comp.Props.Add(rr)

	for _, value := range []string{"20250109,20250113", "20250120T093000Z"} {
		ex := ical.NewProp(ical.PropExceptionDates)
		ex.Value = value
		comp.Props.Add(ex)
	}

	series, err := FromComponent(comp)
	require.NoError(t, err)
	assert.Equal(t, "standup@example.com", series.UID)
	assert.Equal(t, "Standup", series.Summary)
	assert.Equal(t, date(2025, 1, 6), series.Anchor)
	assert.Equal(t, RuleSpec{Freq: "WEEKLY", IntervalCount: 1, ByDay: []string{"MO", "TH"}}, SpecOf(series.Rule))
	assert.Equal(t, []string{"2025-01-09", "2025-01-13", "2025-01-20"}, FormatDates(series.Exceptions.Dates()))

	got := Generate(series.Anchor, series.Rule, series.Exceptions, 3)
	assert.Equal(t, []string{"2025-01-06", "2025-01-16", "2025-01-23"}, FormatDates(got))
}

func TestFromComponent_Errors(t *testing.T) {
	_, err := FromComponent(nil)
	assert.Error(t, err)

	_, err = FromComponent(ical.NewComponent(ical.CompEvent))
	assert.Error(t, err)

	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetDate(ical.PropDateTimeStart, date(2025, 1, 1))
	rr := ical.NewProp(ical.PropRecurrenceRule)
	rr.Value = "FREQ=DAILY;COUNT=3"
	comp.Props.Add(rr)
	_, err = FromComponent(comp)
	assert.ErrorIs(t, err, ErrIllegalField)
}

func TestSeries_EventRoundTrip(t *testing.T) {
	series := Series{
		UID:        "abc-123",
		Summary:    "Rent",
		Anchor:     date(2025, 1, 1),
		Rule:       mustBuild(t, RuleSpec{Freq: "MONTHLY", ByMonthDay: []int{1}, Until: "2025-12-01"}),
		Exceptions: NewExceptionSet(date(2025, 5, 1), date(2025, 3, 1)),
	}
	event := series.Event(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC))

	exdate := event.Props.Get(ical.PropExceptionDates)
	require.NotNil(t, exdate)
	assert.Equal(t, "20250301,20250501", exdate.Value)
	assert.Equal(t, "DATE", exdate.Params.Get("VALUE"))

	back, err := FromComponent(event.Component)
	require.NoError(t, err)
	assert.Equal(t, series.UID, back.UID)
	assert.Equal(t, series.Summary, back.Summary)
	assert.Equal(t, series.Anchor, back.Anchor)
	assert.Equal(t, SpecOf(series.Rule), SpecOf(back.Rule))
	assert.Equal(t, series.Exceptions.Dates(), back.Exceptions.Dates())
}

func TestOccurrenceCalendar(t *testing.T) {
	series := Series{
		UID:    "gym@example.com",
		Anchor: date(2025, 1, 6),
		Rule:   mustBuild(t, RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO", "WE"}}),
	}
	dates := Generate(series.Anchor, series.Rule, ExceptionSet{}, 3)
	cal := OccurrenceCalendar(series, dates, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, cal.Children, 3)

	data, err := EncodeCalendar(cal)
	require.NoError(t, err)
	text := string(data)

	assert.Equal(t, 3, strings.Count(text, "BEGIN:VEVENT"))
	assert.Contains(t, text, "PRODID:-//librecur//NONSGML v1.0//EN")
	assert.Contains(t, text, "DTSTART;VALUE=DATE:20250108")
	assert.Contains(t, text, "DTEND;VALUE=DATE:20250109")
	assert.Contains(t, text, "RECURRENCE-ID;VALUE=DATE:20250113")
}
