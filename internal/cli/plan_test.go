package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ariel-frischer/matrix-runner/internal/config"
	"github.com/ariel-frischer/matrix-runner/internal/errors"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planMatrix = `
[[cases]]
name = "default"

[[cases]]
name = "minimal"
no_default_features = true
features = "alloc"

[[cases]]
name = "docs"
command = "cargo test --doc"

[[cases]]
name = "sparc-only"
arch = ["sparc64"]
`

func TestPlanCmd(t *testing.T) {
	t.Parallel()

	dir := newProject(t, planMatrix)

	tests := map[string]struct {
		args        []string
		contains    []string
		notContains []string
	}{
		"single runner": {
			args: []string{"plan", "-p", dir},
			contains: []string{
				"Running all 3 cases on a single runner",
				"Assigned to this runner",
				"--no-default-features --features alloc",
				"command: cargo test --doc",
				"features: default",
				"Skipped on this architecture\n  sparc-only",
			},
			notContains: []string{"Assigned to other runners"},
		},
		"second shard": {
			args: []string{"plan", "-p", dir, "--total-runners", "2", "--runner-index", "1"},
			contains: []string{
				"Runner 1 of 2: 1 of 3 cases assigned",
				"Assigned to this runner\n  minimal",
				"Assigned to other runners\n  default\n  docs",
			},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestDescribeFeatures(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		c    matrix.Case
		want string
	}{
		"defaults":    {c: matrix.Case{}, want: "default"},
		"features":    {c: matrix.Case{Features: []string{"a", "b"}}, want: "--features a,b"},
		"no defaults": {c: matrix.Case{NoDefaultFeatures: true}, want: "--no-default-features"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, describeFeatures(tt.c))
		})
	}
}

func TestInitCmd(t *testing.T) {
	t.Parallel()

	dir := newProject(t, "")
	path := filepath.Join(dir, config.DefaultMatrixFile)

	out, err := execute(t, "init", "-p", dir, "--lang", "en")
	require.NoError(t, err)
	assert.Contains(t, out, "Detected crate demo")
	assert.Contains(t, out, "Created "+path)

	m, err := config.LoadMatrix(path)
	require.NoError(t, err)
	assert.Len(t, m.Cases, 3)
	assert.True(t, strings.HasSuffix(m.Cases[2].Command, "-p demo"))

	_, err = execute(t, "init", "-p", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, ExitInvalidConfig, errors.ExitCode(err))

	require.NoError(t, os.WriteFile(path, []byte("# edited\n"), 0o644))
	_, err = execute(t, "init", "-p", dir, "--force")
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "# edited")

	// the written template is immediately plannable
	_, err = execute(t, "plan", "-p", dir)
	assert.NoError(t, err)
}
