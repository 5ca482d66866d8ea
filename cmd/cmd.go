// Package cmd defines the command-line interface for hourglass.
package cmd

import (
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(mcpCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsClearCmd)
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	flags := rootCmd.PersistentFlags()
	addWindowFlags(flags)
	addAPIFlags(flags)
	addLocalFlags(flags)
	addSnapshotFlags(flags)
	addFilesystemFlags(flags)
	addOutputFlags(flags)
	addStoreFlags(flags)
	flags.String("log-level", "warn", "Log level: trace or debug or info or warn or error or disabled")
	flags.String("log-format", "console", "Log format: console or json")
	flags.String("profile", "", "Enable profiling and write profiles to files with this prefix")
	flags.String("config", "", "Path to config file")
	if err := viper.BindPFlags(flags); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of runsMigrateCmd to Viper
	runsMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(runsMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding runs migrate flags", err)
	}
}

func addWindowFlags(flags *pflag.FlagSet) {
	flags.String("start", "", "First date of the window: YYYY-MM-DD, RFC3339 or time ago")
	flags.String("end", "", "Last date of the window, inclusive: YYYY-MM-DD, RFC3339 or time ago")
	flags.String("deadline", "", "Wall-clock budget for scanning; partial results are reported when it expires")
	flags.String("sources", string(schema.APIScan), "Comma-separated sources: api, local, snapshot, filesystem")
	flags.String("allowed-users", "", "Comma-separated users to keep; others are dropped")
	flags.String("default-user", "", "User credited with events that carry no author")
	flags.Bool("include-unattributed", false, "Keep events without a user in the report")
	flags.Bool("session-hours", false, "Add a session-based hours column next to the formula estimate")
}

func addAPIFlags(flags *pflag.FlagSet) {
	flags.String("api-url", contract.DefaultAPIURL, "Base URL of the GitHub API")
	flags.String("token", "", "GitHub token (prefer HOURGLASS_TOKEN)")
	flags.String("user", "", "GitHub user whose repositories are scanned")
	flags.String("org", "", "GitHub organization whose repositories are scanned")
	flags.String("include-repos", "", "Comma-separated owner/name repositories to scan")
	flags.String("exclude-repos", "", "Comma-separated owner/name repositories to skip")
	flags.String("contributed-by", "", "Only scan repositories this user contributed to")
	flags.Bool("restrict-owner", false, "Only scan repositories owned by the user or org")
	flags.Bool("fast", false, "Skip per-commit detail requests")
	flags.Bool("skip-commit-stats", false, "Do not fetch line stats per commit")
	flags.Bool("skip-file-modifications", false, "Do not emit file modification events")
	flags.Bool("include-pr-comments", false, "Collect pull request conversation comments")
	flags.Bool("include-review-comments", false, "Collect pull request review comments")
	flags.Bool("include-reviews", false, "Collect pull request reviews")
	flags.Bool("include-issue-pr-comments", false, "Count comments on pull requests as issue comments")
	flags.Bool("disable-rate-limit", false, "Do not wait for the rate limit window to reset")
	flags.String("http-timeout", "30s", "Timeout of a single API request")
	flags.Int("max-retries", contract.DefaultMaxRetries, "Retries for throttled or failed API requests")
}

func addLocalFlags(flags *pflag.FlagSet) {
	flags.String("local-path", "", "Comma-separated directories holding local git repositories")
	flags.Int("max-depth", contract.DefaultMaxDepth, "How deep to search for repositories below each local path")
	flags.Int("local-workers", contract.DefaultWorkers, "Repositories scanned concurrently")
	flags.String("git-timeout", "2m", "Timeout of a single git command")
	flags.Bool("co-authors", false, "Credit Co-authored-by trailers as commits")
	flags.String("assistant-map", "", "JSON or CSV file mapping assistant identities to users")
}

func addSnapshotFlags(flags *pflag.FlagSet) {
	flags.Bool("snapshot-auto", false, "Discover snapshot roots automatically")
	flags.String("snapshot-root", "", "Pinned snapshot root directory")
	flags.String("snapshot-granularity", string(schema.FileGranularity), "Snapshot granularity: file or coarse")
	flags.Int("snapshot-roots-limit", contract.DefaultRootsLimit, "Maximum snapshot roots to scan")
	flags.Int("snapshot-per-root-limit", contract.DefaultPerRootLimit, "Maximum snapshots per root")
	flags.String("snapshot-root-budget", "10m", "Time budget for a single snapshot root")
	flags.Int("snapshot-root-workers", contract.DefaultWorkers, "Snapshot roots scanned concurrently")
	flags.Int("snapshot-file-workers", contract.DefaultWorkers, "Files attributed concurrently per root")
	flags.Int("attribution-inflight", contract.DefaultWorkers, "Global cap on concurrent attribution lookups")
}

func addFilesystemFlags(flags *pflag.FlagSet) {
	flags.String("fs-roots", "", "Comma-separated directories walked by the filesystem source")
	flags.String("fs-exclude", "", "Extra directory names to skip while walking")
	flags.Int("fs-max-files", 0, "Stop walking a root after this many files (0 = no limit)")
	flags.String("fs-progress", "30s", "Interval between progress heartbeats")
	flags.Bool("fs-force", false, "Walk roots even on filesystems that are normally skipped")
	flags.Int("fs-workers", contract.DefaultWorkers, "Roots walked concurrently")
}

func addOutputFlags(flags *pflag.FlagSet) {
	flags.String("output", string(schema.TextOut), "Output format: text or csv or json or parquet")
	flags.String("output-file", "", "Optional path to write output to (a directory for parquet)")
	flags.String("sheet", "", "Only write one sheet: daily, users, days, pr_timeline, issue_timeline, user_timeline")
	flags.Int("precision", contract.DefaultPrecision, "Decimal precision for hours")
	flags.Int("width", 0, "Terminal width override (0 = auto-detect)")
	flags.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
}

func addStoreFlags(flags *pflag.FlagSet) {
	flags.String("cache-backend", string(schema.SQLiteBackend), "Cache backend: sqlite or mysql or postgresql or none")
	flags.String("cache-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	flags.String("runs-backend", "", "Run history backend: sqlite or mysql or postgresql or none")
	flags.String("runs-db-connect", "", "Database connection string for run history (must differ from cache-db-connect)")
	flags.String("export", "", "Raw event export: parquet or clickhouse")
	flags.String("export-connect", "", "Export destination: a file path, an s3:// URL or a ClickHouse DSN")
}
