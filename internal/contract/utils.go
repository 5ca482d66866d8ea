package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/hourglass/internal/logger"
)

// Workload label constants.
const (
	HeavyValue = "Heavy" // Heavy value
	FullValue  = "Full"  // Full value
	LightValue = "Light" // Light value
	TraceValue = "Trace" // Trace value
)

// Color variables for console output.
var (
	HeavyColor = color.New(color.FgRed, color.Bold) // HeavyColor flags days beyond a normal workday.
	FullColor  = color.New(color.FgYellow)          // FullColor marks a regular working day.
	LightColor = color.New(color.FgGreen)           // LightColor marks part-time activity.
	TraceColor = color.New(color.FgCyan)            // TraceColor marks barely any activity.
)

// GetPlainLabel returns a plain text label for an estimated hours value.
// This is the core logic used for CSV, JSON, and table printing.
func GetPlainLabel(hours float64) string {
	switch {
	case hours >= 8:
		return HeavyValue
	case hours >= 4:
		return FullValue
	case hours >= 1:
		return LightValue
	default:
		return TraceValue
	}
}

// GetColorLabel returns a colored text label for console output (table).
func GetColorLabel(hours float64) string {
	text := GetPlainLabel(hours)

	switch text {
	case HeavyValue:
		return HeavyColor.Sprint(text)
	case FullValue:
		return FullColor.Sprint(text)
	case LightValue:
		return LightColor.Sprint(text)
	default:
		return TraceColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// SplitList splits a comma separated value, trimming blanks and dropping empty items.
func SplitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	logger.Get().Error().Err(err).Msg(msg)
	os.Exit(1)
}

// LogWarn logs a warning message.
func LogWarn(msg string, err error) {
	logger.Get().Warn().Err(err).Msg(msg)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for cache storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".hourglass_cache.db"
	}
	return filepath.Join(homeDir, ".hourglass_cache.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for run history.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".hourglass_runs.db"
	}
	return filepath.Join(homeDir, ".hourglass_runs.db")
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to leave room for the "..." prefix.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
