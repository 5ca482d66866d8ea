package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/parquet"
)

// ExportRuns writes the run history and its daily rows to two Parquet files
// named after outputFile, reporting progress to w.
func ExportRuns(store contract.RunStore, outputFile string, w io.Writer) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get run status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total daily records: %d\n", status.TotalRecords)

	runs, err := store.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	records, err := store.ListDailyRecords("")
	if err != nil {
		return fmt.Errorf("failed to retrieve daily records: %w", err)
	}

	runsFile := outputFile + ".runs.parquet"
	if err := parquet.WriteFile(runsFile, parquet.ConvertRunRecords(runs)); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d runs to: %s\n", len(runs), runsFile)

	recordsFile := outputFile + ".daily_records.parquet"
	if err := parquet.WriteFile(recordsFile, parquet.ConvertRunDailyRecords(records)); err != nil {
		return fmt.Errorf("failed to write daily records: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d daily records to: %s\n", len(records), recordsFile)

	return nil
}
