package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *matrix.Report {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &matrix.Report{
		RunID:      "run-1",
		Host:       matrix.Host{OS: "linux", Arch: "amd64", CPUs: 4},
		Shards:     matrix.SingleShard,
		Revision:   "abc1234",
		StartedAt:  start,
		FinishedAt: start.Add(90 * time.Second),
		Outcomes: []matrix.Outcome{
			{Case: matrix.Case{Name: "default", Index: 0}, Status: matrix.StatusPassed, Cause: matrix.StatusPassed, Step: matrix.StepRun, Duration: 2 * time.Second, Retries: 1},
			{
				Case:        matrix.Case{Name: "serde", Features: []string{"serde", "std"}, Index: 1},
				Status:      matrix.StatusFailed,
				Cause:       matrix.StatusFailed,
				Step:        matrix.StepRun,
				Duration:    1500 * time.Millisecond,
				Log:         "$ target/debug/deps/demo\n\x1b[31mthread 'x' panicked\x1b[0m <script>\nline3\nline4\n",
				ArtifactDir: "target/matrix-runner/failures/serde",
			},
			{Case: matrix.Case{Name: "arm-only", Arch: []string{"aarch64"}, Index: 2}, Status: matrix.StatusSkipped, Cause: matrix.StatusSkipped, SkipReason: matrix.SkipArch},
			{Case: matrix.Case{Name: "windows-flaky", Command: "cargo test --doc", Index: 3}, Status: matrix.StatusAllowedFailure, Cause: matrix.StatusTimedOut, Step: matrix.StepCommand, Duration: 10 * time.Second, Log: "slow\n"},
			{Case: matrix.Case{Name: "late", Index: 4}, Status: matrix.StatusCancelled, Cause: matrix.StatusCancelled, SkipReason: matrix.SkipCancelled},
		},
		FailFastCause: "serde",
	}
}

func passingReport() *matrix.Report {
	return &matrix.Report{
		Host: matrix.Host{OS: "linux", Arch: "amd64"},
		Outcomes: []matrix.Outcome{
			{Case: matrix.Case{Name: "only"}, Status: matrix.StatusPassed, Cause: matrix.StatusPassed, Duration: 300 * time.Millisecond},
		},
	}
}

func TestConsole_PrintSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewConsole(&buf, i18n.MustNew("en")).PrintSummary(sampleReport())
	out := buf.String()

	for _, want := range []string{
		"Test Summary",
		"default", "PASSED",
		"serde", "FAILED",
		"arm-only", "SKIPPED", "not for amd64",
		"windows-flaky", "ALLOWED FAILURE", "allowed TIMEOUT",
		"late", "CANCELLED", "not started",
		"5 cases: 1 passed, 1 failed, 1 allowed, 1 skipped, 1 cancelled in 1m30s",
		"Passed only after retrying: default",
		"Stopped early: serde failed",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "All test cases passed")
	assert.Less(t, strings.Index(out, "default"), strings.Index(out, "arm-only"), "declaration order")
}

func TestConsole_PrintSummary_AllPassed(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	console := NewConsole(&buf, i18n.MustNew("en"))
	console.PrintSummary(passingReport())
	assert.Contains(t, buf.String(), "All test cases passed")
	assert.Contains(t, buf.String(), "300ms")

	buf.Reset()
	console.PrintFailureDetails(passingReport())
	assert.Empty(t, buf.String())
}

func TestConsole_PrintFailureDetails(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewConsole(&buf, i18n.MustNew("en"), WithLogLines(2)).PrintFailureDetails(sampleReport())
	out := buf.String()

	assert.Contains(t, out, "Unexpected Failures")
	assert.Contains(t, out, "serde [FAILED]")
	assert.Contains(t, out, "Step: run")
	assert.Contains(t, out, "Artifacts: target/matrix-runner/failures/serde")
	assert.Contains(t, out, "(2 lines omitted)")
	assert.Contains(t, out, "line3\nline4")
	assert.NotContains(t, out, "windows-flaky", "allowed failures are not unexpected")
	assert.NotContains(t, out, "late", "cancelled cases have no details")
}

func TestConsole_Localized(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewConsole(&buf, i18n.MustNew("zh-CN")).PrintSummary(sampleReport())

	assert.Contains(t, buf.String(), "测试摘要")
	assert.Contains(t, buf.String(), "失败")
}

func TestHTMLFormatter(t *testing.T) {
	t.Parallel()

	f, err := NewHTMLFormatter(i18n.MustNew("en"), "demo")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, `<html lang="en">`)
	assert.Contains(t, out, "Matrix Test Report: demo")
	assert.Contains(t, out, "Revision abc1234")
	assert.Contains(t, out, "Run run-1")
	assert.Contains(t, out, `class="status fail"`)
	assert.Contains(t, out, `class="status allowed"`)
	assert.Contains(t, out, "features: serde,std")
	assert.Contains(t, out, "command: cargo test --doc")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "Stopped early: serde failed")
}

func TestHTMLFormatter_WriteHTML(t *testing.T) {
	t.Parallel()

	f, err := NewHTMLFormatter(i18n.MustNew("zh-CN"), "")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "reports", "matrix.html")
	require.NoError(t, f.WriteHTML(path, passingReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `<html lang="zh-CN">`)
	assert.Contains(t, string(data), "矩阵测试报告：-")
}

func TestCount(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Tally{Total: 5, Passed: 1, Failed: 1, Allowed: 1, Skipped: 1, Cancelled: 1}, Count(sampleReport()))
	assert.Equal(t, []string{"default"}, Flaky(sampleReport()))
	assert.Empty(t, Flaky(passingReport()))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		in   time.Duration
		want string
	}{
		"zero":         {in: 0, want: "0ms"},
		"milliseconds": {in: 250 * time.Millisecond, want: "250ms"},
		"seconds":      {in: 1500*time.Millisecond + 300*time.Microsecond, want: "1.5s"},
		"minutes":      {in: 90 * time.Second, want: "1m30s"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, FormatDuration(tt.in))
		})
	}
}

func TestTailLines(t *testing.T) {
	t.Parallel()

	got, dropped := tailLines("a\nb\nc\n", 2)
	assert.Equal(t, "b\nc", got)
	assert.Equal(t, 1, dropped)

	got, dropped = tailLines("a\nb", 0)
	assert.Equal(t, "a\nb", got)
	assert.Zero(t, dropped)
}
