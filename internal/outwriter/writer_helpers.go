package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/huangsam/hourglass/internal/contract"
)

// writeOutput opens path (stdout when empty), hands it to write and closes it.
// what names the written artifact in the confirmation line on stderr.
func writeOutput(path, what string, write func(io.Writer) error) error {
	file, err := contract.SelectOutputFile(path)
	if err != nil {
		return err
	}
	if file == os.Stdout {
		return write(file)
	}
	defer func() { _ = file.Close() }()

	if err := write(file); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stderr, "💾 Wrote %s to %s\n", what, path)
	return nil
}

// writeJSON encodes data with two-space indentation.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVSheet writes one header row followed by rows.
func writeCSVSheet(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return nil
}

// hoursFormat renders hour values with a fixed number of decimals.
func hoursFormat(precision int) func(float64) string {
	return func(v float64) string {
		return strconv.FormatFloat(v, 'f', precision, 64)
	}
}

// roundTo rounds v half away from zero to precision decimals.
func roundTo(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
