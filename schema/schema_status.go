package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// RunStatus represents the status of the run history store.
type RunStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     string           `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalRecords  int              `json:"total_records"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// RunRecord represents one recorded report run.
type RunRecord struct {
	RunID        string     `json:"run_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	DurationMs   *int64     `json:"run_duration_ms,omitempty"`
	EventCount   int64      `json:"event_count"`
	WarningCount int64      `json:"warning_count"`
	ConfigParams *string    `json:"config_params,omitempty"`
}

// DailyRecordRow represents a row from the daily user records table.
type DailyRecordRow struct {
	RunID          string  `db:"run_id" json:"run_id"`
	Date           string  `db:"activity_date" json:"date"`
	User           string  `db:"user_name" json:"user"`
	CommitCount    int64   `db:"commit_count" json:"commit_count"`
	LinesAdded     int64   `db:"lines_added" json:"lines_added"`
	LinesDeleted   int64   `db:"lines_deleted" json:"lines_deleted"`
	FilesModified  int64   `db:"files_modified" json:"files_modified"`
	PRsCreated     int64   `db:"prs_created" json:"prs_created"`
	PRsMerged      int64   `db:"prs_merged" json:"prs_merged"`
	IssuesCreated  int64   `db:"issues_created" json:"issues_created"`
	IssuesClosed   int64   `db:"issues_closed" json:"issues_closed"`
	IssueComments  int64   `db:"issue_comments" json:"issue_comments"`
	EstimatedHours float64 `db:"estimated_hours" json:"estimated_hours"`
	SessionHours   float64 `db:"session_hours" json:"session_hours"`
}
