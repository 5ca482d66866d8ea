package schema

// Custom string types for type safety.
type (
	// Source identifies which scanner produced an event.
	Source string

	// Kind is the sub-type of an event within its source.
	Kind string

	// ScanSource is a user-selectable input family for a report run.
	ScanSource string

	// Granularity is the attribution resolution of the snapshot scanner.
	Granularity string

	// OutputMode represents the format of the output.
	OutputMode string

	// Sheet names one table of the report.
	Sheet string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string

	// ExportBackend represents the sink for the unified event export.
	ExportBackend string

	// WarningScope tells what kind of unit was skipped.
	WarningScope string
)

// All event sources.
const (
	APICommit      Source = "api_commit"
	APIPullRequest Source = "api_pr"
	APIIssue       Source = "api_issue"
	APIComment     Source = "api_comment"
	LocalCommit    Source = "local_commit"
	LocalFileMtime Source = "local_file_mtime"
	SnapshotFile   Source = "snapshot_file"
	FSFile         Source = "fs_file"
)

// All event kinds.
const (
	CommittedKind Kind = "committed"
	CreatedKind   Kind = "created"
	ClosedKind    Kind = "closed"
	MergedKind    Kind = "merged"
	CommentedKind Kind = "commented"
	ReviewedKind  Kind = "reviewed"
	ModifiedKind  Kind = "modified"
)

// All scan sources that can be selected for a run.
const (
	APIScan        ScanSource = "api"
	LocalScan      ScanSource = "local"
	SnapshotScan   ScanSource = "snapshot"
	FilesystemScan ScanSource = "filesystem"
)

// All snapshot granularities.
const (
	FileGranularity   Granularity = "file" // default
	CoarseGranularity Granularity = "coarse"
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All report sheets.
const (
	DailySheet         Sheet = "daily"
	UsersSheet         Sheet = "users"
	DaysSheet          Sheet = "days"
	PRTimelineSheet    Sheet = "pr_timeline"
	IssueTimelineSheet Sheet = "issue_timeline"
	UserTimelineSheet  Sheet = "user_timeline"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All event export sinks.
const (
	NoExport         ExportBackend = ""
	ParquetExport    ExportBackend = "parquet"
	ClickHouseExport ExportBackend = "clickhouse"
)

// All warning scopes.
const (
	RepositoryScope WarningScope = "repository"
	RootScope       WarningScope = "root"
	ItemScope       WarningScope = "item"
	RunScope        WarningScope = "run"
)

// AllScanSources lists the selectable sources in their canonical order.
var AllScanSources = []ScanSource{APIScan, LocalScan, SnapshotScan, FilesystemScan}

// AllSheets lists every sheet in the order they are rendered.
var AllSheets = []Sheet{DailySheet, UsersSheet, DaysSheet, PRTimelineSheet, IssueTimelineSheet, UserTimelineSheet}

// ValidScanSources lists all valid scan sources.
var ValidScanSources = map[ScanSource]struct{}{
	APIScan:        {},
	LocalScan:      {},
	SnapshotScan:   {},
	FilesystemScan: {},
}

// ValidGranularities lists all valid snapshot granularities.
var ValidGranularities = map[Granularity]struct{}{
	FileGranularity:   {},
	CoarseGranularity: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidSheets lists all valid sheet names.
var ValidSheets = map[Sheet]struct{}{
	DailySheet:         {},
	UsersSheet:         {},
	DaysSheet:          {},
	PRTimelineSheet:    {},
	IssueTimelineSheet: {},
	UserTimelineSheet:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidExportBackends lists all valid export sinks.
var ValidExportBackends = map[ExportBackend]struct{}{
	NoExport:         {},
	ParquetExport:    {},
	ClickHouseExport: {},
}
