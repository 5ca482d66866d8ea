// Package outwriter has output and writer logic for reports.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/parquet"
	"github.com/huangsam/hourglass/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	warningColor = color.New(color.FgYellow)
)

// PrintReport writes the report sheets (or the configured one) in the configured output mode.
func PrintReport(report *schema.Report, cfg *contract.Config) error {
	return printSheets(report, cfg, selectedSheets(cfg.Sheet))
}

// PrintTimeline writes only the unified user timeline.
func PrintTimeline(report *schema.Report, cfg *contract.Config) error {
	return printSheets(report, cfg, []schema.Sheet{schema.UserTimelineSheet})
}

func printSheets(report *schema.Report, cfg *contract.Config, sheets []schema.Sheet) error {
	switch cfg.Output {
	case schema.JSONOut:
		return writeOutput(cfg.OutputFile, "JSON", func(w io.Writer) error {
			return writeJSONReport(w, report, sheets, cfg.Precision)
		})
	case schema.CSVOut:
		return writeOutput(cfg.OutputFile, "CSV", func(w io.Writer) error {
			return writeCSVReport(w, report, sheets, cfg)
		})
	case schema.ParquetOut:
		paths, err := parquet.WriteReport(report, cfg.OutputFile, sheets)
		if err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
		_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote %d Parquet sheets to %s\n", len(paths), cfg.OutputFile)
		return nil
	default:
		// Default to human-readable tables
		return writeOutput(cfg.OutputFile, "tables", func(w io.Writer) error {
			return writeTextReport(w, report, sheets, cfg)
		})
	}
}

// writeTextReport renders one table per sheet, then the warnings and a summary line.
func writeTextReport(w io.Writer, report *schema.Report, sheets []schema.Sheet, cfg *contract.Config) error {
	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	opts := sheetOptions{
		fmtFloat:     hoursFormat(cfg.Precision),
		label:        label,
		sessionHours: cfg.SessionHours,
		textWidth:    getMaxTextWidth(cfg),
	}

	for _, sheet := range sheets {
		t, err := buildSheet(report, sheet, opts)
		if err != nil {
			return err
		}
		if slices.Equal(t.Header, timelineHeader) {
			t = dropLastColumn(t) // URLs do not fit a terminal
		}
		if err := writeTable(w, t, sheetTitles[sheet]); err != nil {
			return err
		}
	}

	if err := writeTextWarnings(w, report.Warnings); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "Run %s: %d events from %s in %v. Cache backend: %s\n",
		report.RunID, report.EventCount, joinSources(report.Sources), report.Duration.Round(time.Millisecond), cfg.CacheBackend)
	return err
}

// writeTable renders a single sheet with tablewriter.
func writeTable(w io.Writer, t sheetTable, title string) error {
	if _, err := headingColor.Fprintf(w, "%s (%d rows)\n", title, len(t.Rows)); err != nil {
		return err
	}
	if len(t.Rows) == 0 {
		_, err := fmt.Fprintln(w, "No activity in this window.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header(displayHeader(t.Header))
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(t.Rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}

func writeTextWarnings(w io.Writer, warnings []schema.Warning) error {
	if len(warnings) == 0 {
		return nil
	}
	if _, err := warningColor.Fprintf(w, "Warnings (%d)\n", len(warnings)); err != nil {
		return err
	}
	for _, warn := range warnings {
		if _, err := fmt.Fprintf(w, "- [%s] %s: %s\n", warn.Scope, warn.Target, warn.Reason); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w)
	return err
}

// writeCSVReport writes the sheets as CSV. A single sheet is plain CSV; several
// sheets are written as sections, each led by a one-field row naming the sheet.
func writeCSVReport(w io.Writer, report *schema.Report, sheets []schema.Sheet, cfg *contract.Config) error {
	opts := sheetOptions{fmtFloat: hoursFormat(cfg.Precision), label: contract.GetPlainLabel, sessionHours: cfg.SessionHours}
	sectioned := len(sheets) > 1

	for i, sheet := range sheets {
		t, err := buildSheet(report, sheet, opts)
		if err != nil {
			return err
		}
		if sectioned {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%s\n", sheet); err != nil {
				return err
			}
		}
		if err := writeCSVSheet(w, t.Header, t.Rows); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	}

	if !sectioned || len(report.Warnings) == 0 {
		return nil
	}
	if _, err := fmt.Fprint(w, "\nwarnings\n"); err != nil {
		return err
	}
	rows := make([][]string, len(report.Warnings))
	for i, warn := range report.Warnings {
		rows[i] = []string{string(warn.Scope), warn.Target, warn.Reason}
	}
	return writeCSVSheet(w, []string{"scope", "target", "reason"}, rows)
}

// writeJSONReport writes the full report, or only the requested sheet plus
// warnings, with hours rounded to the configured precision.
func writeJSONReport(w io.Writer, report *schema.Report, sheets []schema.Sheet, precision int) error {
	rounded := roundReport(report, precision)
	if len(sheets) == len(schema.AllSheets) {
		return writeJSON(w, rounded)
	}

	out := map[string]any{
		"run_id":   rounded.RunID,
		"warnings": rounded.Warnings,
	}
	for _, sheet := range sheets {
		switch sheet {
		case schema.DailySheet:
			out[string(sheet)] = rounded.DailyRecords
		case schema.UsersSheet:
			out[string(sheet)] = rounded.UserSummaries
		case schema.DaysSheet:
			out[string(sheet)] = rounded.DailySummaries
		case schema.PRTimelineSheet:
			out[string(sheet)] = rounded.PRTimeline
		case schema.IssueTimelineSheet:
			out[string(sheet)] = rounded.IssueTimeline
		case schema.UserTimelineSheet:
			out[string(sheet)] = rounded.UserTimeline
		default:
			return fmt.Errorf("unknown sheet: %s", sheet)
		}
	}
	return writeJSON(w, out)
}

// roundReport returns a copy of report with every hour value rounded.
func roundReport(report *schema.Report, precision int) *schema.Report {
	out := *report
	out.DailyRecords = slices.Clone(report.DailyRecords)
	for i := range out.DailyRecords {
		out.DailyRecords[i].EstimatedHours = roundTo(out.DailyRecords[i].EstimatedHours, precision)
		out.DailyRecords[i].SessionHours = roundTo(out.DailyRecords[i].SessionHours, precision)
	}
	out.UserSummaries = slices.Clone(report.UserSummaries)
	for i := range out.UserSummaries {
		out.UserSummaries[i].EstimatedHours = roundTo(out.UserSummaries[i].EstimatedHours, precision)
		out.UserSummaries[i].SessionHours = roundTo(out.UserSummaries[i].SessionHours, precision)
	}
	out.DailySummaries = slices.Clone(report.DailySummaries)
	for i := range out.DailySummaries {
		out.DailySummaries[i].EstimatedHours = roundTo(out.DailySummaries[i].EstimatedHours, precision)
	}
	if out.Warnings == nil {
		out.Warnings = []schema.Warning{}
	}
	return &out
}

func dropLastColumn(t sheetTable) sheetTable {
	out := sheetTable{Name: t.Name, Header: t.Header[:len(t.Header)-1]}
	for _, row := range t.Rows {
		out.Rows = append(out.Rows, row[:len(row)-1])
	}
	return out
}

func joinSources(sources []schema.ScanSource) string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = string(s)
	}
	return strings.Join(names, ",")
}
