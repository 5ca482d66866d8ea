// Package parquet provides data structures and functions for exporting hourglass
// events, report sheets and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/huangsam/hourglass/schema"
	"github.com/parquet-go/parquet-go"
)

// Event is one normalized activity event in the unified export.
type Event struct {
	Source       string    `parquet:"source,snappy,dict"`
	Repository   string    `parquet:"repository,snappy,dict"`
	User         *string   `parquet:"user,optional,snappy,dict"`
	Timestamp    time.Time `parquet:"timestamp,snappy"`
	Kind         string    `parquet:"kind,snappy,dict"`
	LinesAdded   int32     `parquet:"lines_added,snappy"`
	LinesDeleted int32     `parquet:"lines_deleted,snappy"`
	Path         *string   `parquet:"path,optional,snappy"`
	Reference    *string   `parquet:"reference,optional,snappy"`
	RunID        string    `parquet:"run_id,snappy,dict"`
}

// DailyUserRecord is one row of the daily sheet.
type DailyUserRecord struct {
	Date           string  `parquet:"date,snappy"`
	User           string  `parquet:"user,snappy,dict"`
	CommitCount    int32   `parquet:"commit_count,snappy"`
	LinesAdded     int32   `parquet:"lines_added,snappy"`
	LinesDeleted   int32   `parquet:"lines_deleted,snappy"`
	FilesModified  int32   `parquet:"files_modified,snappy"`
	PRsCreated     int32   `parquet:"prs_created,snappy"`
	PRsMerged      int32   `parquet:"prs_merged,snappy"`
	IssuesCreated  int32   `parquet:"issues_created,snappy"`
	IssuesClosed   int32   `parquet:"issues_closed,snappy"`
	IssueComments  int32   `parquet:"issue_comments,snappy"`
	EstimatedHours float64 `parquet:"estimated_hours,snappy"`
	SessionHours   float64 `parquet:"session_hours,snappy"`
}

// UserSummary is one row of the users sheet.
type UserSummary struct {
	User           string  `parquet:"user,snappy"`
	CommitCount    int32   `parquet:"commit_count,snappy"`
	LinesAdded     int32   `parquet:"lines_added,snappy"`
	LinesDeleted   int32   `parquet:"lines_deleted,snappy"`
	FilesModified  int32   `parquet:"files_modified,snappy"`
	PRsCreated     int32   `parquet:"prs_created,snappy"`
	PRsMerged      int32   `parquet:"prs_merged,snappy"`
	IssuesCreated  int32   `parquet:"issues_created,snappy"`
	IssuesClosed   int32   `parquet:"issues_closed,snappy"`
	IssueComments  int32   `parquet:"issue_comments,snappy"`
	ActiveDays     int32   `parquet:"active_days,snappy"`
	EstimatedHours float64 `parquet:"estimated_hours,snappy"`
	SessionHours   float64 `parquet:"session_hours,snappy"`
}

// DailySummary is one row of the days sheet.
type DailySummary struct {
	Date           string  `parquet:"date,snappy"`
	CommitCount    int32   `parquet:"commit_count,snappy"`
	LinesAdded     int32   `parquet:"lines_added,snappy"`
	LinesDeleted   int32   `parquet:"lines_deleted,snappy"`
	FilesModified  int32   `parquet:"files_modified,snappy"`
	PRsCreated     int32   `parquet:"prs_created,snappy"`
	PRsMerged      int32   `parquet:"prs_merged,snappy"`
	IssuesCreated  int32   `parquet:"issues_created,snappy"`
	IssuesClosed   int32   `parquet:"issues_closed,snappy"`
	IssueComments  int32   `parquet:"issue_comments,snappy"`
	ActiveUsers    int32   `parquet:"active_users,snappy"`
	EstimatedHours float64 `parquet:"estimated_hours,snappy"`
}

// TimelineRow is one row of a timeline sheet.
type TimelineRow struct {
	Timestamp  time.Time `parquet:"timestamp,snappy"`
	User       string    `parquet:"user,snappy,dict"`
	Repository string    `parquet:"repository,snappy,dict"`
	Source     string    `parquet:"source,snappy,dict"`
	Kind       string    `parquet:"kind,snappy,dict"`
	Reference  *string   `parquet:"reference,optional,snappy"`
	Title      *string   `parquet:"title,optional,snappy"`
	URL        *string   `parquet:"url,optional,snappy"`
}

// Run is one recorded report run.
type Run struct {
	RunID         string     `parquet:"run_id,snappy"`
	StartTime     time.Time  `parquet:"start_time,snappy"`
	EndTime       *time.Time `parquet:"end_time,optional,snappy"`
	RunDurationMs *int64     `parquet:"run_duration_ms,optional,snappy"`
	EventCount    int64      `parquet:"event_count,snappy"`
	WarningCount  int64      `parquet:"warning_count,snappy"`
	ConfigParams  *string    `parquet:"config_params,optional,snappy"`
}

// RunDailyRecord is a daily user row tagged with the run that produced it.
type RunDailyRecord struct {
	RunID          string  `parquet:"run_id,snappy,dict"`
	Date           string  `parquet:"date,snappy"`
	User           string  `parquet:"user,snappy,dict"`
	CommitCount    int64   `parquet:"commit_count,snappy"`
	LinesAdded     int64   `parquet:"lines_added,snappy"`
	LinesDeleted   int64   `parquet:"lines_deleted,snappy"`
	FilesModified  int64   `parquet:"files_modified,snappy"`
	PRsCreated     int64   `parquet:"prs_created,snappy"`
	PRsMerged      int64   `parquet:"prs_merged,snappy"`
	IssuesCreated  int64   `parquet:"issues_created,snappy"`
	IssuesClosed   int64   `parquet:"issues_closed,snappy"`
	IssueComments  int64   `parquet:"issue_comments,snappy"`
	EstimatedHours float64 `parquet:"estimated_hours,snappy"`
	SessionHours   float64 `parquet:"session_hours,snappy"`
}

// Write encodes rows as one Parquet file into w.
func Write[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteFile writes rows to a new Parquet file at outputPath.
func WriteFile[T any](outputPath string, rows []T) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(file, rows); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteReport writes each requested sheet of report to "<dir>/<sheet>.parquet"
// and returns the written paths in sheet order.
func WriteReport(report *schema.Report, dir string, sheets []schema.Sheet) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(sheets))
	for _, sheet := range sheets {
		path := filepath.Join(dir, string(sheet)+".parquet")
		var err error
		switch sheet {
		case schema.DailySheet:
			err = WriteFile(path, ConvertDailyRecords(report.DailyRecords))
		case schema.UsersSheet:
			err = WriteFile(path, ConvertUserSummaries(report.UserSummaries))
		case schema.DaysSheet:
			err = WriteFile(path, ConvertDailySummaries(report.DailySummaries))
		case schema.PRTimelineSheet:
			err = WriteFile(path, ConvertTimeline(report.PRTimeline))
		case schema.IssueTimelineSheet:
			err = WriteFile(path, ConvertTimeline(report.IssueTimeline))
		case schema.UserTimelineSheet:
			err = WriteFile(path, ConvertTimeline(report.UserTimeline))
		default:
			err = fmt.Errorf("unknown sheet %q", sheet)
		}
		if err != nil {
			return paths, fmt.Errorf("failed to write sheet %s: %w", sheet, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ConvertEvents converts events for Parquet export, tagging each with runID.
func ConvertEvents(events []schema.Event, runID string) []Event {
	result := make([]Event, len(events))
	for i, ev := range events {
		result[i] = Event{
			Source:       string(ev.Source),
			Repository:   ev.Repository,
			User:         optional(ev.User),
			Timestamp:    ev.Timestamp.UTC(),
			Kind:         string(ev.Kind),
			LinesAdded:   int32(ev.LinesAdded),
			LinesDeleted: int32(ev.LinesDeleted),
			Path:         optional(ev.Path),
			Reference:    optional(ev.Reference),
			RunID:        runID,
		}
	}
	return result
}

// ConvertDailyRecords converts the daily sheet for Parquet export.
func ConvertDailyRecords(records []schema.DailyUserRecord) []DailyUserRecord {
	result := make([]DailyUserRecord, len(records))
	for i, r := range records {
		result[i] = DailyUserRecord{
			Date:           r.Date,
			User:           r.User,
			CommitCount:    int32(r.CommitCount),
			LinesAdded:     int32(r.LinesAdded),
			LinesDeleted:   int32(r.LinesDeleted),
			FilesModified:  int32(r.FilesModified),
			PRsCreated:     int32(r.PRsCreated),
			PRsMerged:      int32(r.PRsMerged),
			IssuesCreated:  int32(r.IssuesCreated),
			IssuesClosed:   int32(r.IssuesClosed),
			IssueComments:  int32(r.IssueComments),
			EstimatedHours: r.EstimatedHours,
			SessionHours:   r.SessionHours,
		}
	}
	return result
}

// ConvertUserSummaries converts the users sheet for Parquet export.
func ConvertUserSummaries(users []schema.UserSummary) []UserSummary {
	result := make([]UserSummary, len(users))
	for i, u := range users {
		result[i] = UserSummary{
			User:           u.User,
			CommitCount:    int32(u.CommitCount),
			LinesAdded:     int32(u.LinesAdded),
			LinesDeleted:   int32(u.LinesDeleted),
			FilesModified:  int32(u.FilesModified),
			PRsCreated:     int32(u.PRsCreated),
			PRsMerged:      int32(u.PRsMerged),
			IssuesCreated:  int32(u.IssuesCreated),
			IssuesClosed:   int32(u.IssuesClosed),
			IssueComments:  int32(u.IssueComments),
			ActiveDays:     int32(u.ActiveDays),
			EstimatedHours: u.EstimatedHours,
			SessionHours:   u.SessionHours,
		}
	}
	return result
}

// ConvertDailySummaries converts the days sheet for Parquet export.
func ConvertDailySummaries(days []schema.DailySummary) []DailySummary {
	result := make([]DailySummary, len(days))
	for i, d := range days {
		result[i] = DailySummary{
			Date:           d.Date,
			CommitCount:    int32(d.CommitCount),
			LinesAdded:     int32(d.LinesAdded),
			LinesDeleted:   int32(d.LinesDeleted),
			FilesModified:  int32(d.FilesModified),
			PRsCreated:     int32(d.PRsCreated),
			PRsMerged:      int32(d.PRsMerged),
			IssuesCreated:  int32(d.IssuesCreated),
			IssuesClosed:   int32(d.IssuesClosed),
			IssueComments:  int32(d.IssueComments),
			ActiveUsers:    int32(d.ActiveUsers),
			EstimatedHours: d.EstimatedHours,
		}
	}
	return result
}

// ConvertTimeline converts a timeline sheet for Parquet export.
func ConvertTimeline(rows []schema.TimelineRow) []TimelineRow {
	result := make([]TimelineRow, len(rows))
	for i, r := range rows {
		result[i] = TimelineRow{
			Timestamp:  r.Timestamp.UTC(),
			User:       r.User,
			Repository: r.Repository,
			Source:     string(r.Source),
			Kind:       string(r.Kind),
			Reference:  optional(r.Reference),
			Title:      optional(r.Title),
			URL:        optional(r.URL),
		}
	}
	return result
}

// ConvertRunRecords converts run history records for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, r := range records {
		result[i] = Run{
			RunID:         r.RunID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			RunDurationMs: r.DurationMs,
			EventCount:    r.EventCount,
			WarningCount:  r.WarningCount,
			ConfigParams:  r.ConfigParams,
		}
	}
	return result
}

// ConvertRunDailyRecords converts stored daily rows for Parquet export.
func ConvertRunDailyRecords(rows []schema.DailyRecordRow) []RunDailyRecord {
	result := make([]RunDailyRecord, len(rows))
	for i, r := range rows {
		result[i] = RunDailyRecord{
			RunID:          r.RunID,
			Date:           r.Date,
			User:           r.User,
			CommitCount:    r.CommitCount,
			LinesAdded:     r.LinesAdded,
			LinesDeleted:   r.LinesDeleted,
			FilesModified:  r.FilesModified,
			PRsCreated:     r.PRsCreated,
			PRsMerged:      r.PRsMerged,
			IssuesCreated:  r.IssuesCreated,
			IssuesClosed:   r.IssuesClosed,
			IssueComments:  r.IssueComments,
			EstimatedHours: r.EstimatedHours,
			SessionHours:   r.SessionHours,
		}
	}
	return result
}
