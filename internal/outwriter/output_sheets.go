package outwriter

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/hourglass/schema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// sheetTable is one report sheet laid out as strings. Header holds the
// machine keys used by CSV; text tables title-case them.
type sheetTable struct {
	Name   schema.Sheet
	Header []string
	Rows   [][]string
}

// sheetOptions controls how cells are rendered.
type sheetOptions struct {
	fmtFloat     func(float64) string
	label        func(float64) string
	sessionHours bool
	textWidth    int // 0 keeps free text whole
}

var sheetTitles = map[schema.Sheet]string{
	schema.DailySheet:         "Daily activity per user",
	schema.UsersSheet:         "Activity per user",
	schema.DaysSheet:          "Activity per day",
	schema.PRTimelineSheet:    "Pull request timeline",
	schema.IssueTimelineSheet: "Issue timeline",
	schema.UserTimelineSheet:  "User timeline",
}

var counterHeader = []string{
	"commits", "lines_added", "lines_deleted", "files_modified",
	"prs_created", "prs_merged", "issues_created", "issues_closed", "issue_comments",
}

var timelineHeader = []string{"timestamp", "user", "repository", "source", "kind", "reference", "title", "url"}

var titleCaser = cases.Title(language.English)

// displayHeader turns header keys like lines_added into "Lines Added".
func displayHeader(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = titleCaser.String(strings.ReplaceAll(k, "_", " "))
	}
	return out
}

// selectedSheets returns the sheets to render: the one requested, or all of them.
func selectedSheets(sheet schema.Sheet) []schema.Sheet {
	if sheet != "" {
		return []schema.Sheet{sheet}
	}
	return schema.AllSheets
}

// buildSheet lays out one sheet of the report.
func buildSheet(report *schema.Report, sheet schema.Sheet, opts sheetOptions) (sheetTable, error) {
	t := sheetTable{Name: sheet}
	switch sheet {
	case schema.DailySheet:
		t.Header = hoursHeader([]string{"date", "user"}, opts)
		for _, r := range report.DailyRecords {
			row := append([]string{r.Date, r.User}, counterCells(r.Counters)...)
			t.Rows = append(t.Rows, hoursCells(row, r.EstimatedHours, r.SessionHours, opts))
		}
	case schema.UsersSheet:
		t.Header = hoursHeader([]string{"user", "active_days"}, opts)
		for _, r := range report.UserSummaries {
			row := append([]string{r.User, strconv.Itoa(r.ActiveDays)}, counterCells(r.Counters)...)
			t.Rows = append(t.Rows, hoursCells(row, r.EstimatedHours, r.SessionHours, opts))
		}
	case schema.DaysSheet:
		days := opts
		days.sessionHours = false
		t.Header = hoursHeader([]string{"date", "active_users"}, days)
		for _, r := range report.DailySummaries {
			row := append([]string{r.Date, strconv.Itoa(r.ActiveUsers)}, counterCells(r.Counters)...)
			t.Rows = append(t.Rows, hoursCells(row, r.EstimatedHours, 0, days))
		}
	case schema.PRTimelineSheet:
		t.Header, t.Rows = timelineHeader, timelineRows(report.PRTimeline, opts)
	case schema.IssueTimelineSheet:
		t.Header, t.Rows = timelineHeader, timelineRows(report.IssueTimeline, opts)
	case schema.UserTimelineSheet:
		t.Header, t.Rows = timelineHeader, timelineRows(report.UserTimeline, opts)
	default:
		return t, fmt.Errorf("unknown sheet: %s", sheet)
	}
	return t, nil
}

func hoursHeader(lead []string, opts sheetOptions) []string {
	header := append(append([]string{}, lead...), counterHeader...)
	header = append(header, "estimated_hours")
	if opts.sessionHours {
		header = append(header, "session_hours")
	}
	return append(header, "label")
}

func hoursCells(row []string, hours, session float64, opts sheetOptions) []string {
	row = append(row, opts.fmtFloat(hours))
	if opts.sessionHours {
		row = append(row, opts.fmtFloat(session))
	}
	return append(row, opts.label(hours))
}

func counterCells(c schema.Counters) []string {
	return []string{
		strconv.Itoa(c.CommitCount),
		strconv.Itoa(c.LinesAdded),
		strconv.Itoa(c.LinesDeleted),
		strconv.Itoa(c.FilesModified),
		strconv.Itoa(c.PRsCreated),
		strconv.Itoa(c.PRsMerged),
		strconv.Itoa(c.IssuesCreated),
		strconv.Itoa(c.IssuesClosed),
		strconv.Itoa(c.IssueComments),
	}
}

func timelineRows(rows []schema.TimelineRow, opts sheetOptions) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		repo, title := r.Repository, r.Title
		if opts.textWidth > 0 {
			repo = truncateText(repo, opts.textWidth)
			title = truncateText(title, opts.textWidth)
		}
		out = append(out, []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			r.User,
			repo,
			string(r.Source),
			string(r.Kind),
			r.Reference,
			title,
			r.URL,
		})
	}
	return out
}
