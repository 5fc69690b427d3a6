package cli

import (
	goerrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/ariel-frischer/matrix-runner/internal/config"
	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/ariel-frischer/matrix-runner/internal/logging"
	"github.com/ariel-frischer/matrix-runner/internal/output"
	"github.com/ariel-frischer/matrix-runner/internal/project"
	"github.com/spf13/cobra"
)

func newInitCmd(root *rootOptions) *cobra.Command {
	var (
		projectDir string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a TestMatrix.toml template for the current crate",
		Long: `Create a commented TestMatrix.toml in the project root with a few example
cases. An existing file is only replaced with --force.`,
		Example: `  matrix-runner init
  matrix-runner init -p crates/parser --force`,
		GroupID: GroupSetup,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return initMatrix(cmd, root, projectDir, force)
		},
	}

	cmd.Flags().StringVarP(&projectDir, "project", "p", ".", "Cargo project directory")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing matrix file")
	return cmd
}

func initMatrix(cmd *cobra.Command, root *rootOptions, projectDir string, force bool) error {
	out := cmd.OutOrStdout()
	cat := catalogFor(root, "")

	// init also works before Cargo.toml exists; the template then has no -p
	dir := projectDir
	crate := ""
	if proj, err := project.Detect(projectDir, logging.Discard()); err == nil {
		dir = proj.Root
		crate = proj.Manifest.CrateName()
		if crate != "" {
			fmt.Fprintln(out, cat.T("init.detected_crate", "name", crate))
		}
	} else if !project.IsNotFound(err) {
		return errors.Wrap(err, errors.Prerequisite)
	}

	path := filepath.Join(dir, config.DefaultMatrixFile)
	if _, err := os.Stat(path); err == nil && !force {
		return errors.MatrixExists(path)
	} else if err != nil && !goerrors.Is(err, fs.ErrNotExist) {
		return errors.WrapWithMessage(err, errors.Runtime, "checking matrix file")
	}

	if err := os.WriteFile(path, []byte(config.DefaultMatrixTemplate(crate)), 0o644); err != nil {
		return errors.WrapWithMessage(err, errors.Runtime, "writing matrix file")
	}

	output.PrintSuccess(out, cat.T("init.success", "path", path))
	fmt.Fprintln(out, cat.T("init.next_steps"))
	return nil
}
