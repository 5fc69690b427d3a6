package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// DefaultLogLines is how much of a failure log the console shows.
const DefaultLogLines = 200

var (
	bannerColor = color.New(color.FgCyan, color.Bold)
	failColor   = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow)
	okColor     = color.New(color.FgGreen, color.Bold)
	dimColor    = color.New(color.FgHiBlack)
)

// Console prints run results for humans.
type Console struct {
	w        io.Writer
	cat      *i18n.Catalog
	logLines int
}

// ConsoleOption configures a Console.
type ConsoleOption func(*Console)

// WithLogLines limits failure logs to their last n lines. Zero shows all.
func WithLogLines(n int) ConsoleOption {
	return func(c *Console) {
		c.logLines = n
	}
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer, cat *i18n.Catalog, opts ...ConsoleOption) *Console {
	c := &Console{w: w, cat: cat, logLines: DefaultLogLines}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrintSummary prints one row per outcome in declaration order, followed by
// the totals and why the run stopped early, if it did.
func (c *Console) PrintSummary(r *matrix.Report) {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, bannerColor.Sprint(c.cat.T("report.banner")))

	t := table.NewWriter()
	t.SetOutputMirror(c.w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{
		c.cat.T("report.column.name"),
		c.cat.T("report.column.status"),
		c.cat.T("report.column.duration"),
		c.cat.T("report.column.retries"),
		c.cat.T("report.column.note"),
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	for _, o := range r.Outcomes {
		retries := ""
		if o.Retries > 0 {
			retries = strconv.Itoa(o.Retries)
		}
		duration := ""
		if o.Status != matrix.StatusSkipped && o.Status != matrix.StatusCancelled {
			duration = FormatDuration(o.Duration)
		}
		t.AppendRow(table.Row{
			o.Case.Name,
			ColorStatus(c.cat, o.Status),
			duration,
			retries,
			Note(c.cat, r.Host, o),
		})
	}
	t.Render()

	tally := Count(r)
	fmt.Fprintln(c.w, c.cat.T("report.totals",
		"total", tally.Total,
		"passed", tally.Passed,
		"failed", tally.Failed,
		"allowed", tally.Allowed,
		"skipped", tally.Skipped,
		"cancelled", tally.Cancelled,
		"duration", FormatDuration(r.Duration()),
	))

	if flaky := Flaky(r); len(flaky) > 0 {
		fmt.Fprintln(c.w, warnColor.Sprint(c.cat.T("common.flaky_cases", "names", strings.Join(flaky, ", "))))
	}
	if r.FailFastCause != "" {
		fmt.Fprintln(c.w, warnColor.Sprint(c.cat.T("report.fail_fast", "name", r.FailFastCause)))
	}
	if r.Interrupted {
		fmt.Fprintln(c.w, warnColor.Sprint(c.cat.T("report.interrupted")))
	}
	if r.ExitCode() == matrix.ExitOK {
		fmt.Fprintln(c.w, okColor.Sprint(c.cat.T("common.all_passed")))
	}
}

// PrintFailureDetails prints the log of every unexpected failure. Cancelled
// cases have no log and are listed in the summary only.
func (c *Console) PrintFailureDetails(r *matrix.Report) {
	var failures []matrix.Outcome
	for _, o := range r.Unexpected() {
		if o.Status.IsFailure() {
			failures = append(failures, o)
		}
	}
	if len(failures) == 0 {
		return
	}

	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, failColor.Sprint(c.cat.T("report.unexpected_banner")))
	for _, o := range failures {
		fmt.Fprintln(c.w)
		fmt.Fprintf(c.w, "%s %s [%s]\n", failColor.Sprint("──"), o.Case.Name, ColorStatus(c.cat, o.Status))
		if o.Step != matrix.StepNone {
			fmt.Fprintln(c.w, dimColor.Sprint(c.cat.T("report.step", "step", string(o.Step))))
		}
		if o.ArtifactDir != "" {
			fmt.Fprintln(c.w, dimColor.Sprint(c.cat.T("report.artifacts", "path", o.ArtifactDir)))
		}

		log, dropped := tailLines(o.Log, c.logLines)
		if log == "" {
			fmt.Fprintln(c.w, dimColor.Sprint(c.cat.T("report.no_output")))
			continue
		}
		if dropped > 0 {
			fmt.Fprintln(c.w, dimColor.Sprintf("... (%d lines omitted)", dropped))
		}
		fmt.Fprintln(c.w, log)
	}
}
