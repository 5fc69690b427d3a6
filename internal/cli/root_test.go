package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh command tree with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// newProject writes a Cargo.toml and the given matrix file into a temp dir.
func newProject(t *testing.T, matrixToml string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\nversion = \"0.1.0\"\n"), 0o644))
	if matrixToml != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "TestMatrix.toml"), []byte(matrixToml), 0o644))
	}
	return dir
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("override commands use sh")
	}
}

func TestRootCmd_Structure(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	assert.Equal(t, "matrix-runner", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.Contains(t, cmd.Long, "TestMatrix.toml")
	assert.Contains(t, cmd.Example, "matrix-runner run")
	assert.True(t, cmd.SilenceErrors)
	assert.True(t, cmd.SilenceUsage)
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		flagName string
	}{
		"lang flag exists":       {flagName: "lang"},
		"log-level flag exists":  {flagName: "log-level"},
		"log-format flag exists": {flagName: "log-format"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.NotNil(t, NewRootCmd().PersistentFlags().Lookup(tt.flagName))
		})
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	groups := make(map[string]bool)
	for _, g := range cmd.Groups() {
		groups[g.ID] = true
	}
	assert.True(t, groups[GroupTesting])
	assert.True(t, groups[GroupSetup])

	tests := map[string]struct {
		name  string
		group string
		flags []string
	}{
		"run": {
			name:  "run",
			group: GroupTesting,
			flags: []string{"jobs", "config", "project", "total-runners", "runner-index", "fail-fast",
				"timeout", "retries", "html", "artifact-dir", "metrics-file", "keep-target", "cargo", "verbose"},
		},
		"plan":    {name: "plan", group: GroupTesting, flags: []string{"config", "project", "total-runners", "runner-index"}},
		"init":    {name: "init", group: GroupSetup, flags: []string{"force", "project"}},
		"version": {name: "version", group: GroupSetup, flags: []string{"plain"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sub, _, err := NewRootCmd().Find([]string{tt.name})
			require.NoError(t, err)
			assert.Equal(t, tt.name, sub.Name())
			assert.Equal(t, tt.group, sub.GroupID)
			for _, f := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(f), "flag %s", f)
			}
		})
	}
}

func TestArgumentErrors(t *testing.T) {
	t.Parallel()

	dir := newProject(t, "[[cases]]\nname = \"a\"\n")

	tests := map[string]struct {
		args     []string
		wantCode int
		wantMsg  string
	}{
		"unknown flag": {
			args:     []string{"run", "--no-such-flag"},
			wantCode: ExitInvalidConfig,
			wantMsg:  "unknown flag",
		},
		"positional argument": {
			args:     []string{"plan", "extra"},
			wantCode: ExitInvalidConfig,
			wantMsg:  "unexpected argument",
		},
		"shard flags incomplete": {
			args:     []string{"plan", "-p", dir, "--total-runners", "2"},
			wantCode: ExitInvalidConfig,
			wantMsg:  "must be given together",
		},
		"runner index out of range": {
			args:     []string{"plan", "-p", dir, "--total-runners", "2", "--runner-index", "2"},
			wantCode: ExitInvalidConfig,
			wantMsg:  "runner index",
		},
		"negative retries": {
			args:     []string{"run", "-p", dir, "--retries", "-1"},
			wantCode: ExitInvalidConfig,
			wantMsg:  "invalid settings",
		},
		"bad log format": {
			args:     []string{"plan", "-p", dir, "--log-format", "xml"},
			wantCode: ExitInvalidConfig,
			wantMsg:  "log_format",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.True(t, errors.IsCLIError(err))
			assert.Equal(t, tt.wantCode, errors.ExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSetupErrors(t *testing.T) {
	t.Parallel()

	noMatrix := newProject(t, "")
	badMatrix := newProject(t, "[[cases]]\nname = \"a\"\n[[cases]]\nname = \"a\"\n")
	notCargo := t.TempDir()

	tests := map[string]struct {
		args    []string
		wantMsg string
	}{
		"missing matrix":    {args: []string{"run", "-p", noMatrix}, wantMsg: "matrix file not found"},
		"duplicate case":    {args: []string{"plan", "-p", badMatrix}, wantMsg: "duplicate"},
		"explicit bad path": {args: []string{"plan", "-p", badMatrix, "-c", filepath.Join(badMatrix, "m.ini")}, wantMsg: "unsupported"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitInvalidConfig, errors.ExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	t.Run("not a cargo project", func(t *testing.T) {
		t.Parallel()

		// a parent of the temp dir could hold a Cargo.toml, so only the
		// category is checked
		_, err := execute(t, "plan", "-p", notCargo)
		if err != nil {
			assert.Equal(t, ExitInvalidConfig, errors.ExitCode(err))
		}
	})
}

func TestVersionCmd(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "version", "--plain")

	require.NoError(t, err)
	assert.Contains(t, out, "matrix-runner dev")
	assert.Contains(t, out, "commit unknown")
}
