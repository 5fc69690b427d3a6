package testutil

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

var (
	// binaryPath caches the built matrix-runner binary path.
	binaryPath string
	buildOnce  sync.Once
	buildErr   error
)

// mockCargo stands in for cargo in E2E tests. `cargo test --no-run` writes a
// shell test binary into --target-dir and announces it the way cargo does.
// Features steer the outcome: compile-error fails the build, failing makes
// the test binary fail, slow makes it sleep.
const mockCargo = `#!/bin/sh
case "$1" in
fetch) exit 0 ;;
test) ;;
*) echo "mock cargo: unexpected command: $*" >&2; exit 101 ;;
esac

target=""
features=""
while [ $# -gt 0 ]; do
	case "$1" in
	--target-dir) target="$2"; shift ;;
	--features) features="$2"; shift ;;
	esac
	shift
done

case ",$features," in
*,compile-error,*)
	echo '{"reason":"compiler-message","message":{"level":"error","message":"cannot find value","rendered":"error[E0425]: cannot find value ` + "`x`" + ` in this scope\n"}}'
	exit 101 ;;
esac

mkdir -p "$target/debug/deps"
exe="$target/debug/deps/demo-0123456789abcdef"
{
	echo '#!/bin/sh'
	echo 'echo "running 1 test"'
	case ",$features," in
	*,slow,*) echo 'sleep 30' ;;
	esac
	case ",$features," in
	*,failing,*) echo 'echo "test it_works ... FAILED"; exit 101' ;;
	esac
	echo 'echo "test it_works ... ok"'
} > "$exe"
chmod +x "$exe"
printf '{"reason":"compiler-artifact","package_id":"demo 0.1.0","target":{"name":"demo","kind":["lib"],"test":true},"profile":{"test":true},"executable":"%s"}\n' "$exe"
`

// E2EEnv provides an isolated environment for E2E testing: a built
// matrix-runner binary, a mock cargo first in PATH and an empty crate.
type E2EEnv struct {
	t          *testing.T
	tempDir    string
	binDir     string
	projectDir string
}

// CommandResult captures the result of running a matrix-runner command.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// NewE2EEnv creates a new E2E test environment. It skips on Windows, where
// the mock cargo script cannot run.
func NewE2EEnv(t *testing.T) *E2EEnv {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("E2E tests use a shell script as cargo")
	}

	tempDir := t.TempDir()
	env := &E2EEnv{
		t:          t,
		tempDir:    tempDir,
		binDir:     filepath.Join(tempDir, "bin"),
		projectDir: filepath.Join(tempDir, "demo"),
	}
	env.setup()
	return env
}

func (e *E2EEnv) setup() {
	e.t.Helper()

	for _, dir := range []string{e.binDir, e.projectDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			e.t.Fatalf("creating %s: %v", dir, err)
		}
	}
	if err := os.WriteFile(filepath.Join(e.binDir, "cargo"), []byte(mockCargo), 0o755); err != nil {
		e.t.Fatalf("writing mock cargo: %v", err)
	}
	e.WriteFile("Cargo.toml", "[package]\nname = \"demo\"\nversion = \"0.1.0\"\nedition = \"2021\"\n")

	buildOnce.Do(func() {
		binaryPath, buildErr = buildBinary()
	})
	if buildErr != nil {
		e.t.Fatalf("building matrix-runner: %v", buildErr)
	}
}

func buildBinary() (string, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("determining current file location")
	}
	repoRoot := filepath.Join(filepath.Dir(currentFile), "..", "..")

	tmpDir, err := os.MkdirTemp("", "matrix-runner-build-*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir for build: %w", err)
	}
	path := filepath.Join(tmpDir, "matrix-runner")

	cmd := exec.Command("go", "build", "-o", path, "./cmd/matrix-runner")
	cmd.Dir = repoRoot
	if output, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("%w\nOutput: %s", err, output)
	}
	return path, nil
}

// WriteFile writes content to a path relative to the project directory.
func (e *E2EEnv) WriteFile(name, content string) {
	e.t.Helper()

	path := filepath.Join(e.projectDir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		e.t.Fatalf("creating directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		e.t.Fatalf("writing %s: %v", name, err)
	}
}

// Run executes matrix-runner in the project directory.
func (e *E2EEnv) Run(args ...string) CommandResult {
	e.t.Helper()

	start := time.Now()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = e.projectDir
	cmd.Env = e.buildIsolatedEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	case err != nil:
		e.t.Fatalf("running matrix-runner: %v", err)
	}
	return result
}

// buildIsolatedEnv keeps MATRIX_RUNNER_* settings of the developer's shell
// out of the run and puts the mock cargo first in PATH.
func (e *E2EEnv) buildIsolatedEnv() []string {
	path := e.binDir
	if systemPath := os.Getenv("PATH"); systemPath != "" {
		path += string(os.PathListSeparator) + systemPath
	}

	env := []string{
		"PATH=" + path,
		"HOME=" + e.tempDir,
		"CARGO=" + filepath.Join(e.binDir, "cargo"),
		"LANG=C",
		"NO_COLOR=1",
	}
	for _, key := range []string{"TMPDIR", "TMP", "TEMP"} {
		if val, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+val)
		}
	}
	return env
}

// TempDir returns the root temp directory for this test environment.
func (e *E2EEnv) TempDir() string {
	return e.tempDir
}

// ProjectDir returns the mock crate directory.
func (e *E2EEnv) ProjectDir() string {
	return e.projectDir
}
