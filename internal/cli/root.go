// Package cli implements the matrix-runner command line.
package cli

import (
	"context"
	"fmt"

	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/spf13/cobra"
)

// Command group IDs for organizing help output
const (
	GroupTesting = "testing"
	GroupSetup   = "setup"
)

// rootOptions holds the global flags shared by every command.
type rootOptions struct {
	lang      string
	logLevel  string
	logFormat string
}

// NewRootCmd builds the command tree. Each call returns a fresh tree so tests
// can execute commands without sharing flag state.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "matrix-runner",
		Short: "Run a Cargo crate's tests across a matrix of feature configurations",
		Long: `matrix-runner builds and tests a Rust crate once per configuration listed in
TestMatrix.toml, running configurations in parallel with isolated target
directories, and reports a summary table plus optional HTML and metrics files.

Large matrices can be split across CI machines with --total-runners and
--runner-index.

Project: https://github.com/ariel-frischer/matrix-runner`,
		Example: `  # Create a TestMatrix.toml for the crate in the current directory
  matrix-runner init

  # Show which cases would run here
  matrix-runner plan

  # Run the matrix with 4 parallel jobs and write an HTML report
  matrix-runner run -j 4 --html target/matrix-report.html

  # Run the second of three CI shards
  matrix-runner run --total-runners 3 --runner-index 1`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.lang, "lang", "", "Output language (en, zh-CN); overrides the matrix file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Diagnostic log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Diagnostic log format: text or json")

	cmd.SetFlagErrorFunc(flagError)

	cmd.AddGroup(
		&cobra.Group{ID: GroupTesting, Title: "Testing:"},
		&cobra.Group{ID: GroupSetup, Title: "Setup:"},
	)
	cmd.AddCommand(
		newRunCmd(opts),
		newPlanCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// flagError turns pflag parse errors into argument errors with usage.
func flagError(cmd *cobra.Command, err error) error {
	return errors.WrapWithMessage(err, errors.Argument, "invalid arguments",
		fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
}

// noArgs rejects positional arguments with an argument error.
func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return nil
	}
	return errors.NewArgumentErrorWithUsage(
		fmt.Sprintf("unexpected argument %q", args[0]),
		cmd.UseLine(),
		fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()),
	)
}
