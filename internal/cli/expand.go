package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/spf13/cobra"
)

// ExpandResult is the JSON payload of the expand command.
type ExpandResult struct {
	Summary     string   `json:"summary"`
	RRule       string   `json:"rrule"`
	Occurrences []string `json:"occurrences"`
}

type expandOptions struct {
	rule       ruleFlags
	start      string
	count      int
	exceptions []string
	from       string
	to         string
	lang       string
}

// NewExpandCommand creates the expand command.
func NewExpandCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &expandOptions{}

	cmd := &cobra.Command{
		Use:   "expand",
		Short: "List the dates a rule produces",
		Long: `Expand a recurrence rule from a start date.

Excepted dates are skipped and do not count towards --count. With --from
or --to only dates inside the inclusive range are listed.`,
		Example: `  recur expand --start 2025-01-01 --freq MONTHLY --interval 2 --by-day -1FR
  recur expand --start 2025-01-06 --rrule "FREQ=WEEKLY;BYDAY=MO,WE" --except 2025-01-08`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpand(rootOpts, opts, cmd)
		},
	}

	opts.rule.register(cmd)
	cmd.Flags().StringVar(&opts.start, "start", "", "anchor date (YYYY-MM-DD)")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 10, "maximum number of dates")
	cmd.Flags().StringSliceVar(&opts.exceptions, "except", nil, "dates to skip (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.from, "from", "", "first date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.to, "to", "", "last date of the range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.lang, "lang", "en", "summary language")
	_ = cmd.MarkFlagRequired("start")

	return cmd
}

func runExpand(rootOpts *RootOptions, opts *expandOptions, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result, err := expand(opts, f)
	if err != nil {
		return f.Fail(err)
	}

	return f.Success(result, func(w io.Writer) {
		for _, d := range result.Occurrences {
			t, _ := recurrence.ParseDate(d)
			fmt.Fprintf(w, "%s %s\n", d, recurrence.WeekdayOf(t.Weekday()))
		}
	})
}

func expand(opts *expandOptions, f *OutputFormatter) (*ExpandResult, error) {
	anchor, err := recurrence.ParseDate(opts.start)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --start", err)
	}
	if opts.count < 0 {
		return nil, NewExitError(ExitCommandError, "--count must not be negative")
	}
	exceptions, err := recurrence.ParseExceptionSet(opts.exceptions)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --except", err)
	}

	rule, _, err := opts.rule.build()
	if err != nil {
		return nil, err
	}
	f.VerboseLog("rule: %s", recurrence.FormatRRULE(rule))
	f.VerboseLog("anchor: %s, %d exception(s)", recurrence.FormatDate(anchor), exceptions.Len())

	var dates []time.Time
	if opts.from == "" && opts.to == "" {
		dates = recurrence.Generate(anchor, rule, exceptions, opts.count)
	} else {
		from, to, err := dateRange(anchor, opts.from, opts.to)
		if err != nil {
			return nil, err
		}
		f.VerboseLog("range: %s..%s", recurrence.FormatDate(from), recurrence.FormatDate(to))
		dates = recurrence.Between(anchor, rule, exceptions, from, to, opts.count)
	}

	return &ExpandResult{
		Summary:     recurrence.DescribeIn(opts.lang, rule),
		RRule:       recurrence.FormatRRULE(rule),
		Occurrences: recurrence.FormatDates(dates),
	}, nil
}

// dateRange fills a missing bound with the anchor or the default horizon.
func dateRange(anchor time.Time, fromStr, toStr string) (time.Time, time.Time, error) {
	from, to := anchor, anchor.AddDate(0, 0, recurrence.DefaultHorizonDays)
	var err error
	if fromStr != "" {
		if from, err = recurrence.ParseDate(fromStr); err != nil {
			return from, to, WrapExitError(ExitCommandError, "invalid --from", err)
		}
	}
	if toStr != "" {
		if to, err = recurrence.ParseDate(toStr); err != nil {
			return from, to, WrapExitError(ExitCommandError, "invalid --to", err)
		}
	}
	if to.Before(from) {
		return from, to, NewExitError(ExitCommandError, "--to is before --from")
	}
	return from, to, nil
}
