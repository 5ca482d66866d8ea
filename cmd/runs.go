package cmd

import (
	"fmt"
	"os"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/iocache"
	"github.com/huangsam/hourglass/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// runsSetup loads minimal configuration needed for run history operations.
func runsSetup() error {
	backend, connStr, err := backendSetting("runs-backend", "runs-db-connect")
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no scan cache for runs commands)
	if err := iocache.InitCaching("", "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}

	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// runsSetupWrapper wraps runsSetup to provide PreRunE for runs commands.
func runsSetupWrapper(_ *cobra.Command, _ []string) error {
	return runsSetup()
}

// runsMigrateSetupWrapper loads the backend without opening the store, so that
// migrations can run against a fresh or outdated database.
func runsMigrateSetupWrapper(_ *cobra.Command, _ []string) error {
	backend, connStr, err := backendSetting("runs-backend", "runs-db-connect")
	if err != nil {
		return err
	}
	cfg.RunsBackend = backend
	cfg.RunsDBConnect = connStr
	return nil
}

// runsCmd focused on run history management.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage the history of report runs",
	Long: `Manage the recorded history of report runs.

When a runs backend is set, every report stores:
- Run metadata (id, start and end time, sources, window, event and warning counts)
- The daily per-user rows with their estimated hours

Supported backends: SQLite, MySQL, PostgreSQL, or None (disabled, the default)

Subcommands:
  status  - Show run history statistics
  export  - Export runs and daily rows to Parquet
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Record runs in SQLite
  hourglass report --runs-backend sqlite

  # Export for analysis in pandas/DuckDB
  hourglass runs export --runs-backend sqlite --output-file history`,
}

// runsClearCmd clears the run history.
var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all recorded runs",
	Long: `Delete all recorded runs and their daily rows.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  hourglass runs export --runs-backend sqlite --output-file backup
  hourglass runs clear --runs-backend sqlite`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ClearRuns(cfg.RunsBackend, contract.GetRunsDBFilePath(), cfg.RunsDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// runsStatusCmd shows run history status.
var runsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show the runs backend, its connection state, the number of runs, the
latest run and the row count of each table.

Examples:
  hourglass runs status --runs-backend sqlite`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRunStore()
		if store == nil {
			contract.LogFatal("Failed to get run status", fmt.Errorf("runs backend %s is not initialized", cfg.RunsBackend))
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run status", err)
		}
		iocache.PrintRunStatus(os.Stdout, status)
	},
}

// runsExportCmd exports run history to Parquet files.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet files",
	Long: `Write the run history to two Parquet files named after --output-file:
<output-file>.runs.parquet and <output-file>.daily_records.parquet.

Examples:
  hourglass runs export --runs-backend sqlite --output-file history`,
	PreRunE: runsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportRuns(iocache.Manager.GetRunStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// runsMigrateCmd runs schema migrations on the run store.
var runsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations for the run store",
	Long: `Apply or roll back the run store schema migrations.

Examples:
  # Migrate to the latest schema
  hourglass runs migrate --runs-backend postgresql --runs-db-connect "host=... dbname=..."

  # Roll back everything
  hourglass runs migrate --runs-backend sqlite --target-version 0`,
	PreRunE: runsMigrateSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if cfg.RunsBackend == schema.NoneBackend {
			contract.LogFatal("Cannot migrate", fmt.Errorf("set --runs-backend to sqlite, mysql or postgresql"))
		}
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateRuns(cfg.RunsBackend, cfg.RunsDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
		fmt.Println("Run store migrations applied successfully.")
	},
}
