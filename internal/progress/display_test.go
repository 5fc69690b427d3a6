package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/stretchr/testify/assert"
)

func TestSelectSymbols(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		caps      TerminalCapabilities
		wantCheck string
		wantSet   int
	}{
		"unicode terminal": {caps: TerminalCapabilities{IsTTY: true, SupportsUnicode: true}, wantCheck: "✓", wantSet: 14},
		"ascii fallback":   {caps: TerminalCapabilities{IsTTY: true}, wantCheck: "[OK]", wantSet: 9},
		"pipe":             {caps: TerminalCapabilities{}, wantCheck: "[OK]", wantSet: 9},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := SelectSymbols(tt.caps)
			assert.Equal(t, tt.wantCheck, got.Checkmark)
			assert.Equal(t, tt.wantSet, got.SpinnerSet)
		})
	}
}

func TestDetectTerminalCapabilities_NotATerminal(t *testing.T) {
	t.Parallel()

	env := func(string) string { return "" }
	caps := DetectTerminalCapabilities(nil, env)

	assert.False(t, caps.IsTTY)
	assert.False(t, caps.SupportsColor)
	assert.Zero(t, caps.Width)
}

func TestDisplay_Lines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	d := NewDisplay(&buf, i18n.MustNew("en"), 5, TerminalCapabilities{}, true)
	d.Start()
	defer d.Stop()

	a := matrix.Case{Name: "a"}
	b := matrix.Case{Name: "b"}
	d.CaseStarted(a)
	d.CaseStarted(b)
	assert.Equal(t, "0/5 done, 2 running", d.statusLine())

	d.CaseFinished(matrix.Outcome{Case: a, Status: matrix.StatusPassed, Duration: 1200 * time.Millisecond, Retries: 1})
	d.CaseFinished(matrix.Outcome{Case: b, Status: matrix.StatusBuildFailed, ArtifactDir: "/tmp/art/b"})
	d.CaseFinished(matrix.Outcome{Case: matrix.Case{Name: "c"}, Status: matrix.StatusAllowedFailure})
	d.CaseFinished(matrix.Outcome{Case: matrix.Case{Name: "d"}, Status: matrix.StatusCancelled, SkipReason: matrix.SkipCancelled})
	d.CaseFinished(matrix.Outcome{Case: matrix.Case{Name: "e"}, Status: matrix.StatusTimedOut})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"[OK] a passed in 1.2s after 1 retries",
		"[FAIL] b failed to build",
		"  Artifacts for b saved to /tmp/art/b",
		"[WARN] c failed, allowed on this platform",
		"[SKIP] d cancelled",
		"[FAIL] e timed out",
	}, lines)
	assert.Equal(t, "5/5 done, 0 running", d.statusLine())
}
