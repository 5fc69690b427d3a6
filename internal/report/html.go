package report

import (
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ariel-frischer/matrix-runner/internal/i18n"
	"github.com/ariel-frischer/matrix-runner/internal/matrix"
)

//go:embed templates/report.html.tmpl
var htmlTemplate string

// HTMLFormatter renders a report as a single self-contained HTML page.
type HTMLFormatter struct {
	template *template.Template
	cat      *i18n.Catalog
	crate    string
}

// NewHTMLFormatter creates a formatter. crate is shown in the page header.
func NewHTMLFormatter(cat *i18n.Catalog, crate string) (*HTMLFormatter, error) {
	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}
	return &HTMLFormatter{template: tmpl, cat: cat, crate: crate}, nil
}

type htmlLabels struct {
	Total, Passed, Failed, Skipped        string
	Name, Status, Duration, Retries, Note string
	Toggle                                string
}

type htmlRow struct {
	Name        string
	Features    string
	StatusText  string
	StatusClass string
	Duration    string
	Retries     string
	Note        string
	Log         string
}

type htmlData struct {
	Lang         string
	Title        string
	Header       string
	Generated    string
	Revision     string
	RunID        string
	Banners      []string
	Labels       htmlLabels
	Tally        Tally
	SkippedTotal int
	Rows         []htmlRow
}

// Format writes the HTML page for r to w.
func (f *HTMLFormatter) Format(w io.Writer, r *matrix.Report) error {
	cat := f.cat
	crate := f.crate
	if crate == "" {
		crate = "-"
	}

	data := htmlData{
		Lang:      cat.Language(),
		Title:     cat.T("html.title"),
		Header:    cat.T("html.header", "crate", crate),
		Generated: cat.T("html.generated", "time", r.FinishedAt.Format(time.RFC3339), "host", r.Host.String()),
		Labels: htmlLabels{
			Total:    cat.T("html.total"),
			Passed:   cat.T("html.passed"),
			Failed:   cat.T("html.failed"),
			Skipped:  cat.T("html.skipped"),
			Name:     cat.T("report.column.name"),
			Status:   cat.T("report.column.status"),
			Duration: cat.T("report.column.duration"),
			Retries:  cat.T("report.column.retries"),
			Note:     cat.T("report.column.note"),
			Toggle:   cat.T("html.toggle_output"),
		},
		Tally: Count(r),
	}
	data.SkippedTotal = data.Tally.Skipped + data.Tally.Cancelled
	if r.Revision != "" {
		data.Revision = cat.T("html.revision", "revision", r.Revision)
	}
	if r.RunID != "" {
		data.RunID = cat.T("common.run_id", "id", r.RunID)
	}
	if r.FailFastCause != "" {
		data.Banners = append(data.Banners, cat.T("report.fail_fast", "name", r.FailFastCause))
	}
	if r.Interrupted {
		data.Banners = append(data.Banners, cat.T("report.interrupted"))
	}

	for _, o := range r.Outcomes {
		d := GetStatusDisplay(cat, o.Status)
		row := htmlRow{
			Name:        o.Case.Name,
			StatusText:  d.Text,
			StatusClass: d.Class,
			Note:        Note(cat, r.Host, o),
			Log:         stripansi.Strip(o.Log),
		}
		if len(o.Case.Features) > 0 {
			row.Features = cat.T("plan.features", "features", strings.Join(o.Case.Features, ","))
		}
		if o.Case.HasOverride() {
			row.Features = cat.T("plan.command", "command", o.Case.Command)
		}
		if o.Status != matrix.StatusSkipped && o.Status != matrix.StatusCancelled {
			row.Duration = FormatDuration(o.Duration)
		}
		if o.Retries > 0 {
			row.Retries = strconv.Itoa(o.Retries)
		}
		data.Rows = append(data.Rows, row)
	}

	if err := f.template.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return nil
}

// WriteHTML renders r into the file at path, creating parent directories.
func (f *HTMLFormatter) WriteHTML(path string, r *matrix.Report) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating HTML report: %w", err)
	}
	if err := f.Format(file, r); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
