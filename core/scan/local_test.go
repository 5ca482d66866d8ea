package scan

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const sampleActivityLog = `--aaa|Alice|alice@example.com|2024-03-04T10:00:00Z|Add feature
10	2	src/feature.go
5	0	src/feature_test.go
--bbb|Copilot|copilot@github.com|2024-03-05T11:00:00Z|Generated fix
3	3	src/fix.go
--ccc|Alice|alice@example.com|2024-02-28T09:00:00Z|Before the window
1	1	old.go
`

func localConfig(paths ...string) *contract.Config {
	return &contract.Config{
		Local: contract.LocalConfig{Paths: paths},
		Knobs: contract.Knobs{LocalWorkers: 2, MaxDepth: 3},
	}
}

func TestLocalScanner_Scan(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "svc/.git")
	repoPath := filepath.Join(base, "svc")

	git := &contract.MockGitClient{}
	git.On("GetActivityLog", mock.Anything, repoPath, apiWindow.Since(), apiWindow.Until()).
		Return([]byte(sampleActivityLog), nil)

	s, err := NewLocalScanner(localConfig(base), git)
	require.NoError(t, err)
	res, err := s.Scan(context.Background(), apiWindow)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, map[schema.Source]map[schema.Kind]int{
		schema.LocalCommit:    {schema.CommittedKind: 2},
		schema.LocalFileMtime: {schema.ModifiedKind: 3},
	}, countBy(res.Events))

	for _, ev := range res.Events {
		assert.Equal(t, "svc", ev.Repository)
		if ev.Reference == "aaa" && ev.Kind == schema.CommittedKind {
			assert.Equal(t, 15, ev.LinesAdded)
			assert.Equal(t, 2, ev.LinesDeleted)
			assert.Equal(t, "Alice", ev.User)
		}
	}
	git.AssertNotCalled(t, "GetCommitMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLocalScanner_CoAuthorAttribution(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, ".git")

	git := &contract.MockGitClient{}
	git.On("GetActivityLog", mock.Anything, base, mock.Anything, mock.Anything).
		Return([]byte(sampleActivityLog), nil)
	git.On("GetCommitMessages", mock.Anything, base, mock.Anything, mock.Anything).
		Return([]byte("bbb\x1fCopilot\x1fcopilot@github.com\x1fGenerated fix\n\nCo-authored-by: Dana <dana@example.com>\n\x1e"), nil)

	cfg := localConfig(base)
	cfg.Local.CoAuthors = true
	s, err := NewLocalScanner(cfg, git)
	require.NoError(t, err)

	res, err := s.Scan(context.Background(), apiWindow)
	require.NoError(t, err)

	users := map[string]string{}
	for _, ev := range res.Events {
		if ev.Kind == schema.CommittedKind {
			users[ev.Reference] = ev.User
		}
	}
	assert.Equal(t, map[string]string{"aaa": "Alice", "bbb": "Dana"}, users)
}

func TestLocalScanner_Failures(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "good/.git", "bad/.git", "empty")
	good, bad := filepath.Join(base, "good"), filepath.Join(base, "bad")

	git := &contract.MockGitClient{}
	git.On("GetActivityLog", mock.Anything, good, mock.Anything, mock.Anything).
		Return([]byte(sampleActivityLog), nil)
	git.On("GetActivityLog", mock.Anything, bad, mock.Anything, mock.Anything).
		Return(nil, errors.New("not a git repository"))

	s, err := NewLocalScanner(localConfig(base, filepath.Join(base, "empty")), git)
	require.NoError(t, err)
	res, err := s.Scan(context.Background(), apiWindow)
	require.NoError(t, err)

	assert.NotEmpty(t, res.Events)
	targets := map[string]schema.WarningScope{}
	for _, w := range res.Warnings {
		targets[w.Target] = w.Scope
	}
	assert.Len(t, targets, 2)
	assert.Equal(t, schema.RepositoryScope, targets[bad])
	assert.Equal(t, schema.RootScope, targets[filepath.Join(base, "empty")])
}

func TestLocalScanner_Repos(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "a/.git", "b/.git")
	a := filepath.Join(base, "a")

	s, err := NewLocalScanner(localConfig(a, base, a), &contract.MockGitClient{})
	require.NoError(t, err)
	repos, warnings := s.Repos()
	assert.Empty(t, warnings)
	assert.Equal(t, []string{a, filepath.Join(base, "b")}, repos)
}

func TestNewLocalScanner_BadAssistantMap(t *testing.T) {
	cfg := localConfig(t.TempDir())
	cfg.Local.AssistantMap = filepath.Join(t.TempDir(), "missing.json")
	_, err := NewLocalScanner(cfg, &contract.MockGitClient{})
	assert.Error(t, err)
}
