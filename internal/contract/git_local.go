package contract

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultGitTimeout bounds every git subprocess.
const DefaultGitTimeout = 2 * time.Minute

// LocalGitClient implements the GitClient interface by executing the
// local 'git' binary installed on the machine.
type LocalGitClient struct {
	Timeout time.Duration
}

var _ GitClient = &LocalGitClient{} // Compile-time check

// NewLocalGitClient creates a new instance of the local Git client.
func NewLocalGitClient(timeout time.Duration) *LocalGitClient {
	if timeout <= 0 {
		timeout = DefaultGitTimeout
	}
	return &LocalGitClient{Timeout: timeout}
}

// Run executes a git command and returns its stdout.
func (c *LocalGitClient) Run(ctx context.Context, repoPath string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	fullArgs := append([]string{"-C", repoPath, "-c", "core.quotepath=off"}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	out, err := cmd.Output()
	if ctx.Err() != nil {
		return nil, fmt.Errorf("git command in %q stopped: %w", repoPath, ctx.Err())
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		stderr := strings.TrimSpace(string(exitErr.Stderr))
		return nil, fmt.Errorf("git command failed in %q: %s", repoPath, stderr)
	} else if err != nil {
		return nil, fmt.Errorf("git command failed: %w. Ensure Git is installed and available on your PATH", err)
	}
	return out, nil
}

// GetActivityLog implements the GitClient interface.
func (c *LocalGitClient) GetActivityLog(ctx context.Context, repoPath string, since, until time.Time) ([]byte, error) {
	args := []string{
		"log",
		"--all",
		"--numstat",
		"--pretty=format:" + CommitHeaderPrefix + "%H|%an|%ae|%aI|%s",
	}
	return c.Run(ctx, repoPath, appendRange(args, since, until)...)
}

// GetCommitMessages implements the GitClient interface.
func (c *LocalGitClient) GetCommitMessages(ctx context.Context, repoPath string, since, until time.Time) ([]byte, error) {
	args := []string{
		"log",
		"--all",
		"--pretty=format:%H%x1f%an%x1f%ae%x1f%B%x1e",
	}
	return c.Run(ctx, repoPath, appendRange(args, since, until)...)
}

// GetLastCommitForPath implements the GitClient interface.
func (c *LocalGitClient) GetLastCommitForPath(ctx context.Context, repoPath string, path string) ([]byte, error) {
	args := []string{
		"log", "-1",
		"--pretty=format:%H|%an|%aI",
		"--", path,
	}
	return c.Run(ctx, repoPath, args...)
}

// CommitHeaderPrefix marks commit header lines in the activity log.
const CommitHeaderPrefix = "--"

// appendRange adds --since/--until bounds when set.
func appendRange(args []string, since, until time.Time) []string {
	if !since.IsZero() {
		args = append(args, "--since="+since.Format(time.RFC3339))
	}
	if !until.IsZero() {
		args = append(args, "--until="+until.Format(time.RFC3339))
	}
	return args
}
