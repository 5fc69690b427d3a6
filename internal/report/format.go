// Package report renders a finished matrix run: the console summary table,
// the unexpected failure details and the standalone HTML report.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/fatih/color"
)

// StatusDisplay is the label and style class of a status.
type StatusDisplay struct {
	Text  string
	Class string
}

// GetStatusDisplay returns the localized label and class for s.
func GetStatusDisplay(cat *i18n.Catalog, s matrix.Status) StatusDisplay {
	text := cat.T("status." + s.String())
	switch s {
	case matrix.StatusPassed:
		return StatusDisplay{Text: text, Class: "pass"}
	case matrix.StatusAllowedFailure:
		return StatusDisplay{Text: text, Class: "allowed"}
	case matrix.StatusBuildFailed, matrix.StatusFailed, matrix.StatusTimedOut:
		return StatusDisplay{Text: text, Class: "fail"}
	case matrix.StatusSkipped, matrix.StatusCancelled:
		return StatusDisplay{Text: text, Class: "skip"}
	default:
		return StatusDisplay{Text: text, Class: "unknown"}
	}
}

var statusColors = map[string]*color.Color{
	"pass":    color.New(color.FgGreen, color.Bold),
	"allowed": color.New(color.FgYellow),
	"fail":    color.New(color.FgRed, color.Bold),
	"skip":    color.New(color.FgHiBlack),
	"unknown": color.New(color.Reset),
}

// ColorStatus returns the localized status label colored for a terminal.
// Coloring follows fatih/color's terminal detection.
func ColorStatus(cat *i18n.Catalog, s matrix.Status) string {
	d := GetStatusDisplay(cat, s)
	return statusColors[d.Class].Sprint(d.Text)
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// Note is the short explanation shown next to an outcome.
func Note(cat *i18n.Catalog, host matrix.Host, o matrix.Outcome) string {
	switch {
	case o.SkipReason == matrix.SkipArch:
		return cat.T("report.skip_arch", "arch", host.Arch)
	case o.SkipReason == matrix.SkipCancelled:
		return cat.T("report.skip_cancelled")
	case o.Status == matrix.StatusAllowedFailure:
		return cat.T("report.allowed_cause", "cause", cat.T("status."+o.Cause.String()))
	default:
		return ""
	}
}

// Tally holds the counters shown in the summary and the HTML report.
type Tally struct {
	Total     int
	Passed    int
	Failed    int
	Allowed   int
	Skipped   int
	Cancelled int
}

// Count tallies the outcomes of r.
func Count(r *matrix.Report) Tally {
	t := Tally{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.Status {
		case matrix.StatusPassed:
			t.Passed++
		case matrix.StatusAllowedFailure:
			t.Allowed++
		case matrix.StatusSkipped:
			t.Skipped++
		case matrix.StatusCancelled:
			t.Cancelled++
		default:
			if o.Status.IsFailure() {
				t.Failed++
			}
		}
	}
	return t
}

// Flaky returns the names of cases that passed only after retrying.
func Flaky(r *matrix.Report) []string {
	var names []string
	for _, o := range r.Outcomes {
		if o.Status == matrix.StatusPassed && o.Retries > 0 {
			names = append(names, o.Case.Name)
		}
	}
	return names
}

// tailLines keeps the last limit lines of s and reports how many were dropped.
func tailLines(s string, limit int) (string, int) {
	s = strings.TrimRight(s, "\n")
	if limit <= 0 || s == "" {
		return s, 0
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s, 0
	}
	return strings.Join(lines[len(lines)-limit:], "\n"), len(lines) - limit
}
