package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mkdirs creates each directory under base.
func mkdirs(t *testing.T, base string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		require.NoError(t, os.MkdirAll(filepath.Join(base, d), 0o755))
	}
}

// writeFiles creates each file under base with small content.
func writeFiles(t *testing.T, base string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(base, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}
}

func TestDiscoverRepos(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base,
		"alpha/.git",
		"alpha/nested/.git", // never reached, alpha is a repo
		"group/beta/.git",
		"group/deep/er/gamma/.git",
		".hidden/delta/.git",
		"plain/dir",
	)

	tests := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{"depth 1", 1, []string{"alpha"}},
		{"depth 2", 2, []string{"alpha", "group/beta"}},
		{"depth 4", 4, []string{"alpha", "group/beta", "group/deep/er/gamma"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscoverRepos(base, tt.maxDepth)
			require.NoError(t, err)
			want := make([]string, len(tt.want))
			for i, w := range tt.want {
				want[i] = filepath.Join(base, filepath.FromSlash(w))
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestDiscoverRepos_MissingBase(t *testing.T) {
	_, err := DiscoverRepos(filepath.Join(t.TempDir(), "missing"), 3)
	assert.Error(t, err)
}

func TestIsGitRepo(t *testing.T) {
	base := t.TempDir()
	mkdirs(t, base, "work/.git", "bare/objects", "bare/refs", "half/objects")
	writeFiles(t, base, "bare/HEAD", "bare/config", "half/HEAD", "linked/.git")

	assert.True(t, IsGitRepo(filepath.Join(base, "work")))
	assert.True(t, IsGitRepo(filepath.Join(base, "bare")))
	assert.True(t, IsGitRepo(filepath.Join(base, "linked")), "a .git file marks a worktree")
	assert.False(t, IsGitRepo(filepath.Join(base, "half")))
	assert.False(t, IsGitRepo(base))
}
