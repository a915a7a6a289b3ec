package cli

import (
	"strings"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/spf13/cobra"
)

// ruleFlags are the flags every rule-taking command shares.
type ruleFlags struct {
	rrule      string
	freq       string
	interval   int
	byDay      []string
	byMonthDay int
	until      string
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.rrule, "rrule", "", `RFC 5545 RRULE value, e.g. "FREQ=WEEKLY;BYDAY=MO,WE"`)
	flags.StringVar(&f.freq, "freq", "", "frequency (DAILY|WEEKLY|MONTHLY)")
	flags.IntVar(&f.interval, "interval", 1, "repeat every N periods")
	flags.StringSliceVar(&f.byDay, "by-day", nil, "weekdays (MO,WE) or one ordinal weekday for MONTHLY (-1FR)")
	flags.IntVar(&f.byMonthDay, "by-monthday", 0, "day of month for MONTHLY (1-31)")
	flags.StringVar(&f.until, "until", "", "last possible date (YYYY-MM-DD)")

	cmd.MarkFlagsMutuallyExclusive("rrule", "freq")
	cmd.MarkFlagsOneRequired("rrule", "freq")
}

// spec returns the flags in wire form. An --rrule value is parsed first.
func (f *ruleFlags) spec() (recurrence.RuleSpec, error) {
	if f.rrule != "" {
		rule, err := recurrence.ParseRRULE(f.rrule)
		if err != nil {
			return recurrence.RuleSpec{}, err
		}
		return recurrence.SpecOf(rule), nil
	}

	spec := recurrence.RuleSpec{
		Freq:          strings.ToUpper(f.freq),
		IntervalCount: f.interval,
		ByDay:         f.byDay,
		Until:         f.until,
	}
	if f.byMonthDay != 0 {
		spec.ByMonthDay = []int{f.byMonthDay}
	}
	return spec, nil
}

// build returns the validated rule and its normalized spec.
func (f *ruleFlags) build() (recurrence.Rule, recurrence.RuleSpec, error) {
	spec, err := f.spec()
	if err != nil {
		return nil, spec, invalidRule(err)
	}
	rule, err := spec.Build()
	if err != nil {
		return nil, spec, invalidRule(err)
	}
	return rule, recurrence.SpecOf(rule), nil
}
