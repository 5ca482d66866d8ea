// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/hourglass/schema"
)

// GitClient defines the git operations the local and snapshot scanners need.
// This allows scanning logic to be tested without a real git executable.
type GitClient interface {
	// Run executes a git command in repoPath and returns its stdout.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// GetActivityLog returns the commit log with numstat blocks across all refs.
	GetActivityLog(ctx context.Context, repoPath string, since, until time.Time) ([]byte, error)

	// GetCommitMessages returns full commit messages as unit/record separated fields.
	GetCommitMessages(ctx context.Context, repoPath string, since, until time.Time) ([]byte, error)

	// GetLastCommitForPath returns the newest commit touching path as "hash|author|date".
	GetLastCommitForPath(ctx context.Context, repoPath string, path string) ([]byte, error)
}

// CacheManager defines the interface for managing stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetScanStore() CacheStore
	GetRunStore() RunStore
}

// CacheStore defines the interface for cached scan results.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// RunStore defines the interface for tracking report runs and their daily rows.
type RunStore interface {
	// BeginRun records the start of a run.
	BeginRun(runID string, startTime time.Time, configParams map[string]any) error

	// RecordDailyRecords stores the per-user per-day rows of a run.
	RecordDailyRecords(runID string, records []schema.DailyUserRecord) error

	// EndRun updates the run with completion data.
	EndRun(runID string, endTime time.Time, eventCount, warningCount int) error

	// ListRuns returns all recorded runs, newest first.
	ListRuns() ([]schema.RunRecord, error)

	// ListDailyRecords returns the daily rows of one run, or of all runs when runID is empty.
	ListDailyRecords(runID string) ([]schema.DailyRecordRow, error)

	// GetStatus returns status information about the run store.
	GetStatus() (schema.RunStatus, error)

	// Close closes the underlying connection.
	Close() error
}
