package artifact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreserver_Preserve(t *testing.T) {
	t.Parallel()

	work := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(work, "debug", "deps"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(work, "debug", "incremental", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(work, "debug", "deps", "demo-123"), []byte("bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(work, "debug", "incremental", "x", "cache"), []byte("big"), 0o644))

	root := t.TempDir()
	p := NewPreserver(root)

	dir, err := p.Preserve(matrix.Case{Name: "feat/a b", Index: 3}, work, map[string][]byte{
		"run.log":   []byte("\x1b[31merror\x1b[0m: boom\n"),
		"build.log": nil,
	})

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "feat_a_b~3"), dir)

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	require.NoError(t, err)
	assert.Equal(t, "error: boom\n", string(data))
	assert.NoFileExists(t, filepath.Join(dir, "build.log"))

	assert.FileExists(t, filepath.Join(dir, "target", "debug", "deps", "demo-123"))
	assert.NoDirExists(t, filepath.Join(dir, "target", "debug", "incremental"))
}

func TestPreserver_ReplacesPreviousRun(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p := NewPreserver(root)
	c := matrix.Case{Name: "case"}

	_, err := p.Preserve(c, "", map[string][]byte{"old.log": []byte("old")})
	require.NoError(t, err)
	dir, err := p.Preserve(c, "", map[string][]byte{"new.log": []byte("new")})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "case"), dir)
	assert.NoFileExists(t, filepath.Join(dir, "old.log"))
	assert.FileExists(t, filepath.Join(dir, "new.log"))
}

func TestPreserver_SanitizedNamesStayApart(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	p := NewPreserver(root)

	spaced, err := p.Preserve(matrix.Case{Name: "feat a", Index: 0}, "", map[string][]byte{"failure.log": []byte("A failed")})
	require.NoError(t, err)
	underscored, err := p.Preserve(matrix.Case{Name: "feat_a", Index: 1}, "", map[string][]byte{"failure.log": []byte("B failed")})
	require.NoError(t, err)

	assert.NotEqual(t, spaced, underscored)

	data, err := os.ReadFile(filepath.Join(spaced, "failure.log"))
	require.NoError(t, err)
	assert.Equal(t, "A failed", string(data))

	data, err = os.ReadFile(filepath.Join(underscored, "failure.log"))
	require.NoError(t, err)
	assert.Equal(t, "B failed", string(data))
}
