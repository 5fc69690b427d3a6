// Package progress shows live run progress: one line per finished case and,
// on a terminal, a spinner with the running counts.
package progress

import (
	"os"

	"golang.org/x/term"
)

// TerminalCapabilities describes what the output stream can render.
type TerminalCapabilities struct {
	IsTTY           bool
	SupportsColor   bool
	SupportsUnicode bool
	Width           int
}

// ProgressSymbols are the markers printed in front of finished cases.
type ProgressSymbols struct {
	Checkmark  string
	Failure    string
	Warning    string
	Skip       string
	SpinnerSet int
}

// DetectTerminalCapabilities inspects f and the environment.
// Checks: f isatty, NO_COLOR env, MATRIX_RUNNER_ASCII env, terminal width.
func DetectTerminalCapabilities(f *os.File, getenv func(string) string) TerminalCapabilities {
	isTTY := f != nil && term.IsTerminal(int(f.Fd()))

	noColor := getenv("NO_COLOR") != ""
	forceASCII := getenv("MATRIX_RUNNER_ASCII") == "1"

	width := 0
	if isTTY {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	return TerminalCapabilities{
		IsTTY:           isTTY,
		SupportsColor:   isTTY && !noColor,
		SupportsUnicode: isTTY && !forceASCII,
		Width:           width,
	}
}

// SelectSymbols returns the appropriate symbol set based on terminal capabilities.
// Unicode: ✓/✗ with braille spinner (set 14). ASCII: [OK]/[FAIL] with |/-\ spinner (set 9).
func SelectSymbols(caps TerminalCapabilities) ProgressSymbols {
	if caps.SupportsUnicode {
		return ProgressSymbols{
			Checkmark:  "✓",
			Failure:    "✗",
			Warning:    "!",
			Skip:       "-",
			SpinnerSet: 14,
		}
	}

	return ProgressSymbols{
		Checkmark:  "[OK]",
		Failure:    "[FAIL]",
		Warning:    "[WARN]",
		Skip:       "[SKIP]",
		SpinnerSet: 9,
	}
}
