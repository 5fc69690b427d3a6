// Package testutil provides test utilities and helpers for matrix-runner tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// HelperProcessConfig configures the behavior of TestHelperProcess.
type HelperProcessConfig struct {
	// ExitCode is the exit code to return (default 0).
	ExitCode int `json:"exit_code"`
	// Stdout is the content to write to stdout.
	Stdout string `json:"stdout"`
	// Stderr is the content to write to stderr.
	Stderr string `json:"stderr"`
	// Sleep delays the exit after output has been written.
	Sleep time.Duration `json:"sleep"`
	// RepeatStdout writes Stdout this many times (0 and 1 both mean once).
	RepeatStdout int `json:"repeat_stdout"`
	// CounterFile, when set, counts invocations. The first FailTimes
	// invocations exit with ExitCode, later ones exit 0.
	CounterFile string `json:"counter_file"`
	FailTimes   int    `json:"fail_times"`
	// PrintEnv names environment variables echoed to stdout as KEY=value lines.
	PrintEnv []string `json:"print_env"`
}

// HelperProcessEnvVars contains the environment variable names used by TestHelperProcess.
const (
	// EnvWantHelperProcess signals that the test binary should run as a helper process.
	EnvWantHelperProcess = "GO_WANT_HELPER_PROCESS"
	// EnvHelperProcessConfig contains JSON-encoded HelperProcessConfig.
	EnvHelperProcessConfig = "GO_HELPER_PROCESS_CONFIG"
)

// TestHelperProcess implements the helper process pattern. When invoked with
// GO_WANT_HELPER_PROCESS=1 it behaves as the configured child and exits
// without returning; otherwise it returns immediately.
//
// Usage in test file:
//
//	func TestHelperProcess(t *testing.T) {
//	    testutil.TestHelperProcess(t)
//	}
func TestHelperProcess(t *testing.T) {
	if os.Getenv(EnvWantHelperProcess) != "1" {
		return
	}

	config := parseHelperConfig()
	runHelperProcess(config)
}

func parseHelperConfig() HelperProcessConfig {
	config := HelperProcessConfig{}
	configJSON := os.Getenv(EnvHelperProcessConfig)
	if configJSON != "" {
		// Ignore parse errors; use defaults on failure
		_ = json.Unmarshal([]byte(configJSON), &config)
	}
	return config
}

// runHelperProcess executes the helper process behavior and always exits.
func runHelperProcess(config HelperProcessConfig) {
	exitCode := config.ExitCode
	if config.CounterFile != "" {
		n := bumpCounter(config.CounterFile)
		if n > config.FailTimes {
			exitCode = 0
		}
	}

	for _, key := range config.PrintEnv {
		fmt.Fprintf(os.Stdout, "%s=%s\n", key, os.Getenv(key))
	}

	repeat := max(config.RepeatStdout, 1)
	if config.Stdout != "" {
		for range repeat {
			fmt.Fprint(os.Stdout, config.Stdout)
		}
	}
	if config.Stderr != "" {
		fmt.Fprint(os.Stderr, config.Stderr)
	}

	if config.Sleep > 0 {
		time.Sleep(config.Sleep)
	}

	os.Exit(exitCode)
}

// bumpCounter increments the invocation count stored in path and returns the
// new value. Invocations of one helper are sequential, so no locking is needed.
func bumpCounter(path string) int {
	n := 0
	if data, err := os.ReadFile(path); err == nil {
		n, _ = strconv.Atoi(strings.TrimSpace(string(data)))
	}
	n++
	_ = os.WriteFile(path, []byte(strconv.Itoa(n)), 0o644)
	return n
}

// HelperCommand is a program/args/env triple that re-executes the test
// binary as a helper process.
type HelperCommand struct {
	Program string
	Args    []string
	Env     []string
}

// ConfigureHelperCommand returns the command that makes the test binary act
// as a child process configured by config.
//
// Parameters:
//   - t: The test context
//   - testName: Name of the test function containing the TestHelperProcess call
//   - config: Configuration for the helper process behavior
func ConfigureHelperCommand(t *testing.T, testName string, config HelperProcessConfig) HelperCommand {
	t.Helper()

	testBinary, err := os.Executable()
	if err != nil {
		t.Fatalf("failed to get test binary path: %v", err)
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("failed to encode helper config: %v", err)
	}

	return HelperCommand{
		Program: testBinary,
		Args:    []string{"-test.run=^" + testName + "$"},
		Env: []string{
			EnvWantHelperProcess + "=1",
			EnvHelperProcessConfig + "=" + string(configJSON),
		},
	}
}

// CommandLine renders the helper command as a single shell-style string, for
// code paths that take a command override instead of a program and args.
// Environment entries are not included; set them on the parent with t.Setenv.
func (h HelperCommand) CommandLine() string {
	parts := make([]string, 0, len(h.Args)+1)
	parts = append(parts, "'"+h.Program+"'")
	for _, a := range h.Args {
		parts = append(parts, "'"+a+"'")
	}
	return strings.Join(parts, " ")
}

// SetHelperEnv exports the helper environment into the current test process so
// that children spawned by production code inherit it.
func SetHelperEnv(t *testing.T, h HelperCommand) {
	t.Helper()
	for _, kv := range h.Env {
		key, value, _ := strings.Cut(kv, "=")
		t.Setenv(key, value)
	}
}
