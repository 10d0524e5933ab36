package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"hookstat/src/contracts"
	"hookstat/src/report"
	"hookstat/src/sanitize"
)

// Format selects the output of a Writer sink.
type Format string

const (
	FormatText  Format = "text"
	FormatJSON  Format = "json"
	FormatSARIF Format = "sarif"
)

// ParseFormat converts a flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "sarif":
		return FormatSARIF, nil
	default:
		return "", fmt.Errorf("invalid format: %q (expected: text|json|sarif)", s)
	}
}

// Writer renders reports to an io.Writer.
// Text is written as each report arrives; JSON and SARIF are written once on Flush.
type Writer struct {
	Out     io.Writer
	Format  Format
	Color   bool
	Tool    string
	Version string
	RunID   string

	reports []report.Report
}

// Accept implements Sink.
func (w *Writer) Accept(ctx context.Context, analysis string, findings []contracts.Finding) error {
	return w.AcceptReport(ctx, report.Report{Analysis: analysis, Findings: findings})
}

// AcceptReport implements ReportSink.
func (w *Writer) AcceptReport(ctx context.Context, rep report.Report) error {
	if w.Format == FormatText || w.Format == "" {
		return w.writeText(rep)
	}
	w.reports = append(w.reports, rep)
	return nil
}

// Flush writes buffered JSON or SARIF output.
func (w *Writer) Flush() error {
	reports := w.reports
	w.reports = nil

	switch w.Format {
	case FormatJSON:
		return w.writeJSON(reports)
	case FormatSARIF:
		return w.writeSARIF(reports)
	default:
		return nil
	}
}

func (w *Writer) writeText(rep report.Report) error {
	header := color.New(color.Bold, color.FgCyan)
	countColor := color.New(color.FgYellow)
	if w.Color {
		header.EnableColor()
		countColor.EnableColor()
	} else {
		header.DisableColor()
		countColor.DisableColor()
	}

	ew := &errWriter{w: w.Out}
	ew.println(header.Sprint(rep.Analysis))
	ew.println(strings.Repeat("=", len(rep.Analysis)))

	if rep.Headline != "" {
		ew.println(rep.Headline)
	}

	switch {
	case rep.Mode == report.ModeDump:
		for _, f := range rep.Findings {
			ew.printf("%s %s\n", f.LocationText, sanitize.Text(f.Message))
		}
	case len(rep.Findings) == 0:
		ew.println("No findings.")
	default:
		rows := [][]string{
			{"RANK", "COUNT", "LOCATION", "MESSAGE"},
			{"----", "-----", "--------", "-------"},
		}
		for _, f := range rep.Findings {
			rows = append(rows, []string{
				strconv.Itoa(f.Rank),
				countColor.Sprint(f.Count),
				f.LocationText,
				sanitize.Text(f.Message),
			})
		}
		writeColumns(ew, rows)
	}

	if rep.Summary.Records > 0 || rep.Summary.Events > 0 {
		ew.printf("\nRecords: %d  Events: %d  Reported: %d  Suppressed: %d  Truncated: %d\n",
			rep.Summary.Records, rep.Summary.Events, rep.Summary.Reported, rep.Summary.Suppressed, rep.Summary.Truncated)
	}
	if len(rep.Diagnostics) > 0 {
		ew.printf("\nDiagnostics (%d):\n", len(rep.Diagnostics))
		for _, d := range rep.Diagnostics {
			ew.printf("  - %s iid=%d: %s\n", d.Kind, d.IID, sanitize.Text(d.Message))
		}
	}
	ew.println("")
	return ew.err
}

// Envelope is the document written by the JSON format.
type Envelope struct {
	Tool      string          `json:"tool"`
	Version   string          `json:"version,omitempty"`
	RunID     string          `json:"run_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Reports   []report.Report `json:"reports"`
}

func (w *Writer) writeJSON(reports []report.Report) error {
	if reports == nil {
		reports = []report.Report{}
	}
	enc := json.NewEncoder(w.Out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Envelope{
		Tool:      w.tool(),
		Version:   w.Version,
		RunID:     w.RunID,
		Timestamp: time.Now().UTC(),
		Reports:   reports,
	}); err != nil {
		return fmt.Errorf("encode JSON report: %w", err)
	}
	return nil
}

// ReadEnvelope decodes a document written by the JSON format.
func ReadEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode JSON report: %w", err)
	}
	return &env, nil
}

func (w *Writer) tool() string {
	if w.Tool == "" {
		return "hookstat"
	}
	return w.Tool
}

// columnGap separates table columns.
const columnGap = 2

// writeColumns writes rows as a left-aligned table. Widths are measured in
// display cells, so coloured cells line up with plain ones. The last column
// is not padded.
func writeColumns(ew *errWriter, rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], sanitize.Width(cell))
		}
	}

	for _, row := range rows {
		var line strings.Builder
		for i, cell := range row {
			line.WriteString(cell)
			if i < len(row)-1 {
				line.WriteString(strings.Repeat(" ", widths[i]-sanitize.Width(cell)+columnGap))
			}
		}
		ew.println(line.String())
	}
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
