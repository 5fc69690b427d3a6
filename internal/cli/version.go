package cli

import (
	"fmt"
	"runtime"

	"github.com/ariel-frischer/matrix-runner/internal/build"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:     "version",
		Aliases: []string{"v"},
		Short:   "Display version information (v)",
		Long:    "Display version, commit, build date, and Go version information for matrix-runner",
		Example: `  # Show version info
  matrix-runner version

  # Plain output (for scripts)
  matrix-runner version --plain`,
		GroupID: GroupSetup,
		Args:    noArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			if plain {
				fmt.Fprintln(out, build.String())
				return
			}
			color.New(color.FgCyan, color.Bold).Fprintf(out, "matrix-runner %s\n", build.Version)
			fmt.Fprintf(out, "  commit:   %s\n", build.Commit)
			fmt.Fprintf(out, "  built:    %s\n", build.BuildDate)
			fmt.Fprintf(out, "  go:       %s\n", runtime.Version())
			fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Plain output without formatting")
	return cmd
}
