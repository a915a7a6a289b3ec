package recurrence

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBuild(t *testing.T, spec RuleSpec) Rule {
	t.Helper()
	rule, err := spec.Build()
	require.NoError(t, err)
	return rule
}

func mustDates(t *testing.T, values ...string) []time.Time {
	t.Helper()
	out := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := ParseDate(v)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func TestGenerate_Scenarios(t *testing.T) {
	tests := []struct {
		name       string
		anchor     time.Time
		spec       RuleSpec
		exceptions []string
		maxCount   int
		want       []string
	}{
		{
			name:     "daily every other day",
			anchor:   date(2025, 1, 1),
			spec:     RuleSpec{Freq: "DAILY", IntervalCount: 2},
			maxCount: 5,
			want:     []string{"2025-01-01", "2025-01-03", "2025-01-05", "2025-01-07", "2025-01-09"},
		},
		{
			name:       "daily exception is compensated",
			anchor:     date(2025, 1, 1),
			spec:       RuleSpec{Freq: "DAILY", IntervalCount: 2},
			exceptions: []string{"2025-01-03"},
			maxCount:   5,
			want:       []string{"2025-01-01", "2025-01-05", "2025-01-07", "2025-01-09", "2025-01-11"},
		},
		{
			name:     "weekly Monday and Wednesday",
			anchor:   date(2025, 1, 6),
			spec:     RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO", "WE"}},
			maxCount: 4,
			want:     []string{"2025-01-06", "2025-01-08", "2025-01-13", "2025-01-15"},
		},
		{
			name:     "monthly second Monday",
			anchor:   date(2025, 1, 1),
			spec:     RuleSpec{Freq: "MONTHLY", ByDay: []string{"2MO"}},
			maxCount: 3,
			want:     []string{"2025-01-13", "2025-02-10", "2025-03-10"},
		},
		{
			name:     "monthly 31st skips short months",
			anchor:   date(2025, 1, 31),
			spec:     RuleSpec{Freq: "MONTHLY", ByMonthDay: []int{31}},
			maxCount: 3,
			want:     []string{"2025-01-31", "2025-03-31", "2025-05-31"},
		},
		{
			name:     "biweekly starts in next eligible week",
			anchor:   date(2025, 1, 8),
			spec:     RuleSpec{Freq: "WEEKLY", IntervalCount: 2, ByDay: []string{"MO"}},
			maxCount: 3,
			want:     []string{"2025-01-20", "2025-02-03", "2025-02-17"},
		},
		{
			name:     "weekly days before anchor in first week are skipped",
			anchor:   date(2025, 1, 9),
			spec:     RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO", "FR"}},
			maxCount: 3,
			want:     []string{"2025-01-10", "2025-01-13", "2025-01-17"},
		},
		{
			name:     "monthly last Friday every 2 months",
			anchor:   date(2025, 1, 1),
			spec:     RuleSpec{Freq: "MONTHLY", IntervalCount: 2, ByDay: []string{"-1FR"}},
			maxCount: 3,
			want:     []string{"2025-01-31", "2025-03-28", "2025-05-30"},
		},
		{
			name:     "monthly ordinal before anchor waits for next month",
			anchor:   date(2025, 1, 20),
			spec:     RuleSpec{Freq: "MONTHLY", ByDay: []string{"2MO"}},
			maxCount: 2,
			want:     []string{"2025-02-10", "2025-03-10"},
		},
		{
			name:     "monthly day before anchor waits for next month",
			anchor:   date(2025, 1, 20),
			spec:     RuleSpec{Freq: "MONTHLY", ByMonthDay: []int{15}},
			maxCount: 2,
			want:     []string{"2025-02-15", "2025-03-15"},
		},
		{
			name:     "fifth Monday skips months without one",
			anchor:   date(2025, 1, 1),
			spec:     RuleSpec{Freq: "MONTHLY", ByDay: []string{"5MO"}},
			maxCount: 3,
			want:     []string{"2025-03-31", "2025-06-30", "2025-09-29"},
		},
		{
			name:     "until is inclusive",
			anchor:   date(2025, 1, 1),
			spec:     RuleSpec{Freq: "DAILY", IntervalCount: 2, Until: "2025-01-05"},
			maxCount: 10,
			want:     []string{"2025-01-01", "2025-01-03", "2025-01-05"},
		},
		{
			name:     "until as timestamp",
			anchor:   date(2025, 1, 6),
			spec:     RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO"}, Until: "2025-01-20T15:00:00Z"},
			maxCount: 10,
			want:     []string{"2025-01-06", "2025-01-13", "2025-01-20"},
		},
		{
			name:     "until before anchor yields nothing",
			anchor:   date(2025, 1, 6),
			spec:     RuleSpec{Freq: "DAILY", Until: "2025-01-01"},
			maxCount: 10,
			want:     []string{},
		},
		{
			name:       "exceptions with time of day",
			anchor:     date(2025, 1, 6),
			spec:       RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO"}},
			exceptions: []string{"2025-01-13T09:30:00+09:00"},
			maxCount:   2,
			want:       []string{"2025-01-06", "2025-01-20"},
		},
		{
			name:     "anchor time of day is dropped",
			anchor:   time.Date(2025, 1, 1, 18, 45, 0, 0, time.UTC),
			spec:     RuleSpec{Freq: "DAILY"},
			maxCount: 2,
			want:     []string{"2025-01-01", "2025-01-02"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := mustBuild(t, tt.spec)
			exceptions, err := ParseExceptionSet(tt.exceptions)
			require.NoError(t, err)

			got := Generate(tt.anchor, rule, exceptions, tt.maxCount)
			assert.Equal(t, tt.want, FormatDates(got))
		})
	}
}

func TestGenerate_DailyDeterminism(t *testing.T) {
	anchor := date(2024, 12, 30)
	for _, n := range []int{1, 2, 3, 7, 30} {
		rule, err := NewDaily(WithInterval(n))
		require.NoError(t, err)

		got := Generate(anchor, rule, ExceptionSet{}, 20)
		require.Len(t, got, 20)
		for k, d := range got {
			assert.Equal(t, anchor.AddDate(0, 0, k*n), d)
		}
	}
}

func TestGenerate_WeeklyMembershipAndSpacing(t *testing.T) {
	days := []Weekday{Tuesday, Thursday, Sunday}
	for _, interval := range []int{1, 2, 3} {
		rule, err := NewWeekly(days, WithInterval(interval))
		require.NoError(t, err)

		anchor := date(2025, 3, 5)
		got := Generate(anchor, rule, ExceptionSet{}, 30)
		require.Len(t, got, 30)

		base := weekStart(anchor)
		for _, d := range got {
			assert.Contains(t, days, WeekdayOf(d.Weekday()))
			weeks := daysBetween(base, weekStart(d)) / 7
			assert.Zero(t, weeks%interval, "%s is in an ineligible week", FormatDate(d))
		}
	}
}

func TestGenerate_MonthlyOrdinalCorrectness(t *testing.T) {
	for _, tok := range []string{"1SU", "3WE", "5FR", "-1MO", "-2SA", "-5TH"} {
		ord, err := ParseOrdinalWeekday(tok)
		require.NoError(t, err)
		rule, err := NewMonthlyByWeekday(ord)
		require.NoError(t, err)

		got := Generate(date(2025, 1, 1), rule, ExceptionSet{}, 12)
		require.NotEmpty(t, got, tok)
		for _, d := range got {
			assert.Equal(t, ord.Weekday.Time(), d.Weekday())
			if ord.Ordinal > 0 {
				assert.Equal(t, int(ord.Ordinal), (d.Day()-1)/7+1)
			} else {
				last := d.AddDate(0, 1, -d.Day()).Day()
				assert.Equal(t, -int(ord.Ordinal), (last-d.Day())/7+1)
			}
		}
	}
}

func TestGenerate_AscendingUniqueBounded(t *testing.T) {
	specs := []RuleSpec{
		{Freq: "DAILY", IntervalCount: 3},
		{Freq: "WEEKLY", IntervalCount: 2, ByDay: []string{"SU", "MO", "SA"}},
		{Freq: "MONTHLY", ByDay: []string{"-1SU"}},
		{Freq: "MONTHLY", IntervalCount: 5, ByMonthDay: []int{30}},
	}
	anchor := date(2025, 2, 14)
	exceptions := NewExceptionSet(date(2025, 2, 16), date(2025, 2, 23), date(2025, 3, 30))

	for _, spec := range specs {
		t.Run(spec.Freq, func(t *testing.T) {
			rule := mustBuild(t, spec)
			got := Generate(anchor, rule, exceptions, 25)
			assert.LessOrEqual(t, len(got), 25)
			for i, d := range got {
				assert.False(t, d.Before(anchor))
				assert.False(t, exceptions.Contains(d))
				if i > 0 {
					assert.True(t, d.After(got[i-1]), "not strictly ascending at %d", i)
				}
			}
			// identical inputs give identical output
			assert.Equal(t, got, Generate(anchor, rule, exceptions, 25))
		})
	}
}

func TestGenerate_ExceptionsDoNotShrinkResult(t *testing.T) {
	rule := mustBuild(t, RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO", "WE", "FR"}})
	anchor := date(2025, 1, 6)

	plain := Generate(anchor, rule, ExceptionSet{}, 10)
	excepted := NewExceptionSet(plain[1], plain[4], plain[7])
	got := Generate(anchor, rule, excepted, 10)

	require.Len(t, got, 10)
	for _, d := range got {
		assert.False(t, excepted.Contains(d))
	}
	assert.Equal(t, plain[9], got[6])
}

func TestExpand_Horizon(t *testing.T) {
	rule := mustBuild(t, RuleSpec{Freq: "DAILY"})
	anchor := date(2025, 1, 1)

	got := Expand(anchor, rule, ExceptionSet{}, ExpansionOptions{MaxCount: 100, HorizonDays: 5})
	assert.Equal(t, []string{
		"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04", "2025-01-05", "2025-01-06",
	}, FormatDates(got))

	// default horizon applies when unset
	got = Expand(anchor, rule, ExceptionSet{}, ExpansionOptions{MaxCount: 5000})
	assert.Len(t, got, DefaultHorizonDays+1)
	assert.Equal(t, anchor.AddDate(0, 0, DefaultHorizonDays), got[len(got)-1])
}

func TestExpand_ImpossibleRuleTerminates(t *testing.T) {
	// A fifth Monday in February needs a leap year whose February starts on
	// a Monday; the next one after 2016 is 2044, well past the horizon.
	rule := mustBuild(t, RuleSpec{Freq: "MONTHLY", IntervalCount: 12, ByDay: []string{"5MO"}})
	got := Generate(date(2025, 2, 1), rule, ExceptionSet{}, 3)
	assert.Empty(t, got)
	assert.NotNil(t, got)

	// with a larger horizon the 2044 date is found
	got = Expand(date(2025, 2, 1), rule, ExceptionSet{}, ExpansionOptions{MaxCount: 1, HorizonDays: 365 * 20})
	assert.Equal(t, []string{"2044-02-29"}, FormatDates(got))
}

func TestExpand_HugeIntervalTerminates(t *testing.T) {
	anchor := date(2025, 1, 31) // a Friday
	for _, n := range []int{1 << 62, math.MaxInt} {
		tests := []struct {
			name string
			spec RuleSpec
			want []string
		}{
			{"daily", RuleSpec{Freq: "DAILY", IntervalCount: n}, []string{"2025-01-31"}},
			{"weekly", RuleSpec{Freq: "WEEKLY", IntervalCount: n, ByDay: []string{"MO", "FR", "SA"}}, []string{"2025-01-31", "2025-02-01"}},
			{"monthly by day", RuleSpec{Freq: "MONTHLY", IntervalCount: n, ByMonthDay: []int{31}}, []string{"2025-01-31"}},
			{"monthly by weekday", RuleSpec{Freq: "MONTHLY", IntervalCount: n, ByDay: []string{"-1FR"}}, []string{"2025-01-31"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rule := mustBuild(t, tt.spec)
				done := make(chan []time.Time, 1)
				go func() { done <- Generate(anchor, rule, ExceptionSet{}, 5) }()
				select {
				case got := <-done:
					assert.Equal(t, tt.want, FormatDates(got), "interval %d", n)
				case <-time.After(5 * time.Second):
					t.Fatalf("expansion with interval %d did not terminate", n)
				}

				got := Expand(anchor, rule, ExceptionSet{}, ExpansionOptions{MaxCount: 5, HorizonDays: math.MaxInt})
				assert.Equal(t, tt.want, FormatDates(got))
			})
		}
	}
}

func TestExpand_HorizonClamped(t *testing.T) {
	rule := mustBuild(t, RuleSpec{Freq: "WEEKLY", IntervalCount: 2, ByDay: []string{"SU"}})
	anchor := date(2025, 1, 5)

	got := Expand(anchor, rule, ExceptionSet{}, ExpansionOptions{MaxCount: 100000, HorizonDays: math.MaxInt})
	require.NotEmpty(t, got)
	last := got[len(got)-1]
	assert.False(t, last.After(anchor.AddDate(0, 0, MaxHorizonDays)))
	// week parity holds across the whole clamped horizon
	assert.Zero(t, daysBetween(anchor, last)%14, "last %s", FormatDate(last))
	assert.Equal(t, MaxHorizonDays/14+1, len(got))
}

func TestDaysBetween_LongSpans(t *testing.T) {
	a := date(2025, 1, 1)
	assert.Equal(t, 150000, daysBetween(a, a.AddDate(0, 0, 150000)))
	assert.Equal(t, -7, daysBetween(a, a.AddDate(0, 0, -7)))
}

func TestExpand_EveryDateExcepted(t *testing.T) {
	rule := mustBuild(t, RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO"}, Until: "2025-02-28"})
	anchor := date(2025, 1, 1)
	all := Generate(anchor, rule, ExceptionSet{}, 100)
	require.Len(t, all, 8)

	got := Generate(anchor, rule, NewExceptionSet(all...), 100)
	assert.Empty(t, got)
}

func TestExpand_DegenerateInputs(t *testing.T) {
	rule := mustBuild(t, RuleSpec{Freq: "DAILY"})
	assert.Empty(t, Generate(date(2025, 1, 1), rule, ExceptionSet{}, 0))
	assert.Empty(t, Generate(date(2025, 1, 1), rule, ExceptionSet{}, -3))
	assert.Empty(t, Generate(date(2025, 1, 1), nil, ExceptionSet{}, 10))
}

func TestBetween(t *testing.T) {
	rule := mustBuild(t, RuleSpec{Freq: "WEEKLY", ByDay: []string{"MO", "TH"}})
	anchor := date(2025, 1, 6)

	got := Between(anchor, rule, NewExceptionSet(date(2025, 2, 6)), date(2025, 2, 1), date(2025, 2, 13), 100)
	assert.Equal(t, mustDates(t, "2025-02-03", "2025-02-10", "2025-02-13"), got)

	// range before the anchor
	assert.Empty(t, Between(anchor, rule, ExceptionSet{}, date(2024, 12, 1), date(2024, 12, 31), 100))

	// capped
	assert.Len(t, Between(anchor, rule, ExceptionSet{}, date(2025, 1, 1), date(2025, 12, 31), 3), 3)
}
