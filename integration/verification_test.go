//go:build integration

// Package integration contains integration tests for hourglass.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags integration ./integration
package integration

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gitAt runs git in dir with a fixed author and commit date.
func gitAt(t *testing.T, dir, date string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=dev", "GIT_AUTHOR_EMAIL=dev@example.com", "GIT_AUTHOR_DATE="+date,
		"GIT_COMMITTER_NAME=dev", "GIT_COMMITTER_EMAIL=dev@example.com", "GIT_COMMITTER_DATE="+date,
	)
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
}

// TestLocalHoursVerification builds a repository with known commits and checks
// the daily hours against commits*0.5 + (added+deleted)/30.
func TestLocalHoursVerification(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}

	repo := filepath.Join(t.TempDir(), "sample")
	require.NoError(t, os.MkdirAll(repo, 0o755))
	gitAt(t, repo, "2024-03-05T10:00:00Z", "init", "-q")

	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "line"
	}
	require.NoError(t, os.WriteFile(filepath.Join(repo, "a.txt"), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	gitAt(t, repo, "2024-03-05T10:00:00Z", "add", "a.txt")
	gitAt(t, repo, "2024-03-05T10:00:00Z", "commit", "-q", "-m", "add a")

	lines[0], lines[1] = "changed", "changed"
	require.NoError(t, os.WriteFile(filepath.Join(repo, "a.txt"), []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	gitAt(t, repo, "2024-03-05T11:00:00Z", "commit", "-q", "-am", "change a")

	out, err := runHourglass(t, nil,
		"report", "--sources", "local", "--local-path", repo,
		"--start", "2024-03-01", "--end", "2024-03-31",
		"--output", "json", "--sheet", "daily")
	require.NoError(t, err)

	var got struct {
		Daily []struct {
			Date           string  `json:"date"`
			User           string  `json:"user"`
			CommitCount    int     `json:"commit_count"`
			LinesAdded     int     `json:"lines_added"`
			LinesDeleted   int     `json:"lines_deleted"`
			EstimatedHours float64 `json:"estimated_hours"`
		} `json:"daily"`
	}
	require.NoError(t, json.Unmarshal(out, &got), string(out))
	require.Len(t, got.Daily, 1)

	day := got.Daily[0]
	assert.Equal(t, "2024-03-05", day.Date)
	assert.Equal(t, "dev", day.User)
	assert.Equal(t, 2, day.CommitCount)
	assert.Equal(t, 12, day.LinesAdded)
	assert.Equal(t, 2, day.LinesDeleted)
	assert.Equal(t, 1.47, day.EstimatedHours) // 2*0.5 + 14/30
}

// TestHelpAndVersion checks the CLI wiring without touching any source.
func TestHelpAndVersion(t *testing.T) {
	// cobra prints command output to stderr by default
	version, err := exec.Command(getHourglassBinary(), "version").CombinedOutput()
	require.NoError(t, err)
	assert.Contains(t, string(version), "hourglass CLI")

	out, err := runHourglass(t, nil, "--help")
	require.NoError(t, err)
	for _, sub := range []string{"report", "timeline", "cache", "runs", "mcp"} {
		assert.Contains(t, string(out), sub)
	}
}
