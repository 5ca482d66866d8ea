package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/schema"
	"github.com/jmoiron/sqlx"
)

const (
	runsTable         = "hourglass_runs"
	dailyRecordsTable = "hourglass_daily_records"

	// recordBatchSize keeps batched inserts under the SQLite bound-variable limit.
	recordBatchSize = 500
)

// RunStoreImpl records report runs and their daily rows.
type RunStoreImpl struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
}

var _ contract.RunStore = &RunStoreImpl{} // Compile-time check

// runRow is the stored form of a run; times are unix milliseconds on every backend.
type runRow struct {
	RunID        string         `db:"run_id"`
	StartMs      int64          `db:"start_ms"`
	EndMs        sql.NullInt64  `db:"end_ms"`
	DurationMs   sql.NullInt64  `db:"run_duration_ms"`
	EventCount   int64          `db:"event_count"`
	WarningCount int64          `db:"warning_count"`
	ConfigParams sql.NullString `db:"config_params"`
}

func (r runRow) record() schema.RunRecord {
	rec := schema.RunRecord{
		RunID:        r.RunID,
		StartTime:    time.UnixMilli(r.StartMs).UTC(),
		EventCount:   r.EventCount,
		WarningCount: r.WarningCount,
	}
	if r.EndMs.Valid {
		end := time.UnixMilli(r.EndMs.Int64).UTC()
		rec.EndTime = &end
	}
	if r.DurationMs.Valid {
		d := r.DurationMs.Int64
		rec.DurationMs = &d
	}
	if r.ConfigParams.Valid {
		p := r.ConfigParams.String
		rec.ConfigParams = &p
	}
	return rec
}

// NewRunStore opens the run store and brings its schema to the latest version.
func NewRunStore(backend schema.DatabaseBackend, connStr string) (contract.RunStore, error) {
	if backend == schema.NoneBackend {
		return &RunStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetRunsDBFilePath())
	if err != nil {
		return nil, err
	}
	if err := migrateDB(db.DB, backend, -1); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &RunStoreImpl{db: db, backend: backend}, nil
}

// BeginRun records the start of a run.
func (rs *RunStoreImpl) BeginRun(runID string, startTime time.Time, configParams map[string]any) error {
	if rs.db == nil {
		return nil
	}

	var params sql.NullString
	if configParams != nil {
		raw, err := json.Marshal(configParams)
		if err != nil {
			return fmt.Errorf("failed to marshal config params: %w", err)
		}
		params = sql.NullString{String: string(raw), Valid: true}
	}

	query := rs.db.Rebind(fmt.Sprintf(`INSERT INTO %s (run_id, start_ms, config_params) VALUES (?, ?, ?)`, runsTable))
	if _, err := rs.db.Exec(query, runID, startTime.UnixMilli(), params); err != nil {
		return fmt.Errorf("failed to begin run %s: %w", runID, err)
	}
	return nil
}

// RecordDailyRecords stores the per-user per-day rows of a run in one transaction.
func (rs *RunStoreImpl) RecordDailyRecords(runID string, records []schema.DailyUserRecord) error {
	if rs.db == nil || len(records) == 0 {
		return nil
	}

	rows := make([]schema.DailyRecordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, schema.DailyRecordRow{
			RunID:          runID,
			Date:           r.Date,
			User:           r.User,
			CommitCount:    int64(r.CommitCount),
			LinesAdded:     int64(r.LinesAdded),
			LinesDeleted:   int64(r.LinesDeleted),
			FilesModified:  int64(r.FilesModified),
			PRsCreated:     int64(r.PRsCreated),
			PRsMerged:      int64(r.PRsMerged),
			IssuesCreated:  int64(r.IssuesCreated),
			IssuesClosed:   int64(r.IssuesClosed),
			IssueComments:  int64(r.IssueComments),
			EstimatedHours: r.EstimatedHours,
			SessionHours:   r.SessionHours,
		})
	}

	tx, err := rs.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`INSERT INTO %s (run_id, activity_date, user_name, commit_count, lines_added, lines_deleted,
		files_modified, prs_created, prs_merged, issues_created, issues_closed, issue_comments, estimated_hours, session_hours)
		VALUES (:run_id, :activity_date, :user_name, :commit_count, :lines_added, :lines_deleted,
		:files_modified, :prs_created, :prs_merged, :issues_created, :issues_closed, :issue_comments, :estimated_hours, :session_hours)`,
		dailyRecordsTable)

	for start := 0; start < len(rows); start += recordBatchSize {
		end := min(start+recordBatchSize, len(rows))
		if _, err := tx.NamedExec(query, rows[start:end]); err != nil {
			return fmt.Errorf("failed to record daily rows for run %s: %w", runID, err)
		}
	}
	return tx.Commit()
}

// EndRun updates the run with completion data.
func (rs *RunStoreImpl) EndRun(runID string, endTime time.Time, eventCount, warningCount int) error {
	if rs.db == nil {
		return nil
	}

	endMs := endTime.UnixMilli()
	query := rs.db.Rebind(fmt.Sprintf(`UPDATE %s SET end_ms = ?, run_duration_ms = ? - start_ms,
		event_count = ?, warning_count = ? WHERE run_id = ?`, runsTable))
	res, err := rs.db.Exec(query, endMs, endMs, eventCount, warningCount, runID)
	if err != nil {
		return fmt.Errorf("failed to end run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s was never started", runID)
	}
	return nil
}

// ListRuns returns all recorded runs, newest first.
func (rs *RunStoreImpl) ListRuns() ([]schema.RunRecord, error) {
	if rs.db == nil {
		return nil, nil
	}

	var rows []runRow
	query := fmt.Sprintf(`SELECT run_id, start_ms, end_ms, run_duration_ms, event_count, warning_count, config_params
		FROM %s ORDER BY start_ms DESC, run_id ASC`, runsTable)
	if err := rs.db.Select(&rows, query); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]schema.RunRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// ListDailyRecords returns the daily rows of one run, or of all runs when runID is empty.
func (rs *RunStoreImpl) ListDailyRecords(runID string) ([]schema.DailyRecordRow, error) {
	if rs.db == nil {
		return nil, nil
	}

	columns := `run_id, activity_date, user_name, commit_count, lines_added, lines_deleted, files_modified,
		prs_created, prs_merged, issues_created, issues_closed, issue_comments, estimated_hours, session_hours`
	order := "ORDER BY run_id ASC, activity_date DESC, user_name ASC"

	var rows []schema.DailyRecordRow
	var err error
	if runID == "" {
		err = rs.db.Select(&rows, fmt.Sprintf("SELECT %s FROM %s %s", columns, dailyRecordsTable, order))
	} else {
		query := rs.db.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE run_id = ? %s", columns, dailyRecordsTable, order))
		err = rs.db.Select(&rows, query, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list daily records: %w", err)
	}
	return rows, nil
}

// GetStatus returns status information about the run store.
func (rs *RunStoreImpl) GetStatus() (schema.RunStatus, error) {
	status := schema.RunStatus{
		Backend:    string(rs.backend),
		Connected:  rs.db != nil,
		TableSizes: map[string]int64{},
	}
	if rs.db == nil {
		return status, nil
	}

	for _, table := range []string{runsTable, dailyRecordsTable} {
		var count int64
		if err := rs.db.Get(&count, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
			return status, fmt.Errorf("failed to count %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRuns = int(status.TableSizes[runsTable])
	status.TotalRecords = int(status.TableSizes[dailyRecordsTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	var last struct {
		RunID   string `db:"run_id"`
		StartMs int64  `db:"start_ms"`
	}
	lastQuery := fmt.Sprintf("SELECT run_id, start_ms FROM %s ORDER BY start_ms DESC, run_id ASC LIMIT 1", runsTable)
	if err := rs.db.Get(&last, lastQuery); err != nil {
		return status, fmt.Errorf("failed to get last run: %w", err)
	}
	status.LastRunID = last.RunID
	status.LastRunTime = time.UnixMilli(last.StartMs).UTC()

	var oldest int64
	if err := rs.db.Get(&oldest, fmt.Sprintf("SELECT MIN(start_ms) FROM %s", runsTable)); err != nil {
		return status, fmt.Errorf("failed to get oldest run: %w", err)
	}
	status.OldestRunTime = time.UnixMilli(oldest).UTC()

	return status, nil
}

// Close closes the underlying DB connection.
func (rs *RunStoreImpl) Close() error {
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}
