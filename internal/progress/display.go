package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

// Display is a matrix.Observer that prints case completions as they happen.
type Display struct {
	w       io.Writer
	cat     *i18n.Catalog
	symbols ProgressSymbols
	spin    *spinner.Spinner
	color   bool

	mu      sync.Mutex
	total   int
	done    int
	running map[string]bool
}

// NewDisplay creates a Display for a run of total cases. The spinner is only
// used when caps reports a terminal and spin is true.
func NewDisplay(w io.Writer, cat *i18n.Catalog, total int, caps TerminalCapabilities, spin bool) *Display {
	d := &Display{
		w:       w,
		cat:     cat,
		symbols: SelectSymbols(caps),
		total:   total,
		color:   caps.SupportsColor,
		running: make(map[string]bool),
	}
	if caps.IsTTY && spin {
		d.spin = spinner.New(spinner.CharSets[d.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(w))
	}
	return d
}

// Start starts the spinner, if any.
func (d *Display) Start() {
	if d.spin == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spin.Suffix = " " + d.statusLine()
	d.spin.Start()
}

// Stop stops the spinner, if any, and clears its line.
func (d *Display) Stop() {
	if d.spin != nil {
		d.spin.Stop()
	}
}

// CaseStarted implements matrix.Observer.
func (d *Display) CaseStarted(c matrix.Case) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running[c.Name] = true
	d.updateSpinner()
}

// CaseFinished implements matrix.Observer.
func (d *Display) CaseFinished(o matrix.Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.done++
	delete(d.running, o.Case.Name)

	if d.spin != nil {
		d.spin.Lock()
		defer d.spin.Unlock()
		// spinner writes "\r" + frame, clear the line before printing over it
		fmt.Fprint(d.w, "\r\033[K")
	}
	fmt.Fprintln(d.w, d.finishedLine(o))
	if o.ArtifactDir != "" {
		fmt.Fprintln(d.w, "  "+d.paint(color.Faint, d.cat.T("run.artifacts_saved", "name", o.Case.Name, "path", o.ArtifactDir)))
	}
	d.updateSpinnerLocked()
}

func (d *Display) finishedLine(o matrix.Outcome) string {
	name := o.Case.Name
	duration := o.Duration.Round(time.Millisecond).String()

	switch o.Status {
	case matrix.StatusPassed:
		msg := d.cat.T("run.passed", "name", name, "duration", duration)
		if o.Retries > 0 {
			msg = d.cat.T("run.passed_on_retry", "name", name, "duration", duration, "retries", o.Retries)
		}
		return d.paint(color.FgGreen, d.symbols.Checkmark) + " " + msg
	case matrix.StatusBuildFailed:
		return d.paint(color.FgRed, d.symbols.Failure) + " " + d.cat.T("run.build_failed", "name", name)
	case matrix.StatusFailed:
		return d.paint(color.FgRed, d.symbols.Failure) + " " + d.cat.T("run.failed", "name", name)
	case matrix.StatusTimedOut:
		return d.paint(color.FgRed, d.symbols.Failure) + " " + d.cat.T("run.timed_out", "name", name)
	case matrix.StatusAllowedFailure:
		return d.paint(color.FgYellow, d.symbols.Warning) + " " + d.cat.T("run.allowed_failure", "name", name)
	case matrix.StatusCancelled:
		return d.paint(color.FgHiBlack, d.symbols.Skip) + " " + d.cat.T("run.cancelled", "name", name)
	default:
		return d.paint(color.FgHiBlack, d.symbols.Skip) + " " + d.cat.T("run.skipped", "name", name)
	}
}

func (d *Display) paint(attr color.Attribute, s string) string {
	c := color.New(attr)
	if d.color {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (d *Display) statusLine() string {
	return d.cat.T("run.progress", "done", d.done, "total", d.total, "running", len(d.running))
}

// updateSpinner refreshes the spinner suffix. Callers hold d.mu.
func (d *Display) updateSpinner() {
	if d.spin == nil {
		return
	}
	d.spin.Lock()
	defer d.spin.Unlock()
	d.updateSpinnerLocked()
}

// updateSpinnerLocked is updateSpinner for callers that hold the spinner lock.
func (d *Display) updateSpinnerLocked() {
	if d.spin == nil {
		return
	}
	d.spin.Suffix = " " + d.statusLine()
}
