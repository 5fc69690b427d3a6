package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPlanCmd(root *rootOptions) *cobra.Command {
	flags := &matrixFlags{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which matrix cases this runner would execute",
		Long: `Load and validate the matrix, then list the cases assigned to this runner,
the cases left to other runners and the cases skipped on this architecture.
Nothing is built.`,
		Example: `  matrix-runner plan
  matrix-runner plan --total-runners 3 --runner-index 2`,
		GroupID: GroupTesting,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd, root, flags)
			if err != nil {
				return err
			}
			plan, err := matrix.Partition(s.matrix.Cases, s.host, s.settings.Shards())
			if err != nil {
				return errors.InvalidShard(err)
			}
			printPlan(cmd.OutOrStdout(), s, plan)
			return nil
		},
	}

	flags.register(cmd)
	registerShardFlags(cmd)
	return cmd
}

func printPlan(out io.Writer, s *session, plan matrix.Plan) {
	cat := s.catalog
	bold := color.New(color.Bold)
	if !terminalCaps(out).SupportsColor {
		bold.DisableColor()
	}

	bold.Fprintln(out, cat.T("plan.header", "host", s.host))
	printShard(out, s, plan)

	assigned := make(map[string]bool, len(plan.Assigned))
	for _, c := range plan.Assigned {
		assigned[c.Name] = true
	}
	var others []matrix.Case
	for _, c := range plan.Applicable {
		if !assigned[c.Name] {
			others = append(others, c)
		}
	}
	skipped := make([]matrix.Case, 0, len(plan.ArchSkipped))
	for _, o := range plan.ArchSkipped {
		skipped = append(skipped, o.Case)
	}

	fmt.Fprintln(out)
	bold.Fprintln(out, cat.T("plan.assigned"))
	printCases(out, cat, plan.Assigned, true)

	if s.settings.Shards() != matrix.SingleShard {
		fmt.Fprintln(out)
		bold.Fprintln(out, cat.T("plan.other_runner"))
		printCases(out, cat, others, false)
	}

	fmt.Fprintln(out)
	bold.Fprintln(out, cat.T("plan.skipped_arch"))
	printCases(out, cat, skipped, false)
}

func printCases(out io.Writer, cat *i18n.Catalog, cases []matrix.Case, detail bool) {
	if len(cases) == 0 {
		fmt.Fprintln(out, "  "+cat.T("plan.none"))
		return
	}
	for _, c := range cases {
		fmt.Fprintf(out, "  %s\n", c.Name)
		if !detail {
			continue
		}
		if c.HasOverride() {
			fmt.Fprintln(out, "    "+cat.T("plan.command", "command", c.Command))
			continue
		}
		fmt.Fprintln(out, "    "+cat.T("plan.features", "features", describeFeatures(c)))
	}
}

// describeFeatures renders the cargo feature flags of a default build.
func describeFeatures(c matrix.Case) string {
	var parts []string
	if c.NoDefaultFeatures {
		parts = append(parts, "--no-default-features")
	}
	if len(c.Features) > 0 {
		parts = append(parts, "--features "+strings.Join(c.Features, ","))
	}
	if len(parts) == 0 {
		return "default"
	}
	return strings.Join(parts, " ")
}
