package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/spf13/cobra"
)

// NewRRuleCommand creates the rrule command. With an argument it parses
// the RRULE value; otherwise it renders the rule given by flags.
func NewRRuleCommand(rootOpts *RootOptions) *cobra.Command {
	var rule ruleFlags

	cmd := &cobra.Command{
		Use:   "rrule [RRULE]",
		Short: "Convert between rule flags and RFC 5545 RRULE values",
		Example: `  recur rrule --freq MONTHLY --by-monthday 31
  recur rrule "FREQ=MONTHLY;INTERVAL=2;BYDAY=-1FR"`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if cmd.Flags().Changed("freq") || cmd.Flags().Changed("rrule") {
					return NewExitError(ExitCommandError, "give either an RRULE argument or rule flags")
				}
				// satisfies the rrule/freq flag group
				return cmd.Flags().Set("rrule", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			r, spec, err := rule.build()
			if err != nil {
				return f.Fail(err)
			}
			result := DescribeResult{
				Summary: recurrence.Describe(r),
				RRule:   recurrence.FormatRRULE(r),
				Spec:    spec,
			}

			if len(args) == 0 {
				return f.Success(result, func(w io.Writer) {
					fmt.Fprintln(w, "RRULE:"+result.RRule)
				})
			}
			return f.Success(result, func(w io.Writer) {
				fmt.Fprintln(w, formatSpec(spec))
				f.VerboseLog("%s", result.Summary)
			})
		},
	}

	rule.register(cmd)
	return cmd
}

// formatSpec renders a spec as space separated key=value pairs.
func formatSpec(spec recurrence.RuleSpec) string {
	parts := []string{"freq=" + spec.Freq}
	if spec.IntervalCount > 1 {
		parts = append(parts, fmt.Sprintf("interval=%d", spec.IntervalCount))
	}
	if len(spec.ByDay) > 0 {
		parts = append(parts, "byDay="+strings.Join(spec.ByDay, ","))
	}
	for _, d := range spec.ByMonthDay {
		parts = append(parts, fmt.Sprintf("byMonthday=%d", d))
	}
	if spec.Until != "" {
		parts = append(parts, "until="+spec.Until)
	}
	return strings.Join(parts, " ")
}
