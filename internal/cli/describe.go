package cli

import (
	"fmt"
	"io"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/spf13/cobra"
)

// DescribeResult is the JSON payload of the describe command.
type DescribeResult struct {
	Summary string              `json:"summary"`
	RRule   string              `json:"rrule"`
	Spec    recurrence.RuleSpec `json:"spec"`
}

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		rule ruleFlags
		lang string
	)

	cmd := &cobra.Command{
		Use:     "describe",
		Short:   "Summarize a rule in plain language",
		Example: `  recur describe --freq WEEKLY --by-day MO,WE --lang ko`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

			r, spec, err := rule.build()
			if err != nil {
				return f.Fail(err)
			}
			result := DescribeResult{
				Summary: recurrence.DescribeIn(lang, r),
				RRule:   recurrence.FormatRRULE(r),
				Spec:    spec,
			}
			return f.Success(result, func(w io.Writer) {
				fmt.Fprintln(w, result.Summary)
			})
		},
	}

	rule.register(cmd)
	cmd.Flags().StringVar(&lang, "lang", "en", "summary language (BCP 47 tag)")
	return cmd
}
