package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fsConfig(roots ...string) *contract.Config {
	return &contract.Config{
		FS: contract.FSConfig{
			Roots:    roots,
			Excludes: []string{".git", "node_modules"},
			Force:    true,
		},
		Knobs: contract.Knobs{FSWorkers: 2},
	}
}

func TestFSScanner_Scan(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "docs/a.md", "src/main.go", "node_modules/x.js", ".git/HEAD", "old.txt")
	inWindow := time.Date(2024, 3, 3, 8, 0, 0, 0, time.UTC)
	for _, f := range []string{"docs/a.md", "src/main.go", "node_modules/x.js", ".git/HEAD"} {
		require.NoError(t, os.Chtimes(filepath.Join(root, f), inWindow, inWindow))
	}
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(root, "old.txt"), old, old))

	res, err := NewFSScanner(fsConfig(root)).Scan(context.Background(), snapshotWindow)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	var paths []string
	for _, ev := range res.Events {
		assert.Equal(t, schema.FSFile, ev.Source)
		assert.Equal(t, root, ev.Repository)
		assert.Empty(t, ev.User)
		assert.Equal(t, inWindow, ev.Timestamp)
		paths = append(paths, ev.Path)
	}
	assert.ElementsMatch(t, []string{"docs/a.md", "src/main.go"}, paths)
}

func TestFSScanner_MaxFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a", "b", "c", "d")
	cfg := fsConfig(root)
	cfg.Knobs.FSMaxFiles = 2

	res, err := NewFSScanner(cfg).Scan(context.Background(), schema.Window{})
	require.NoError(t, err)
	assert.Len(t, res.Events, 2)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].Reason, "stopped after 2 files")
}

func TestFSScanner_Gate(t *testing.T) {
	ok, rejected := t.TempDir(), t.TempDir()
	writeFiles(t, ok, "kept.txt")
	writeFiles(t, rejected, "lost.txt")

	cfg := fsConfig(ok, rejected)
	cfg.FS.Force = false
	s := NewFSScanner(cfg)
	s.gate = func(_ context.Context, root string) (string, error) {
		if root == rejected {
			return "vfat", CheckFilesystem("vfat")
		}
		return "ext4", nil
	}

	res, err := s.Scan(context.Background(), schema.Window{})
	require.NoError(t, err)
	require.Len(t, res.Events, 1)
	assert.Equal(t, "kept.txt", res.Events[0].Path)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, rejected, res.Warnings[0].Target)
	assert.Contains(t, res.Warnings[0].Reason, ErrUnsupportedFilesystem.Error())
}

func TestFSScanner_MissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone")
	res, err := NewFSScanner(fsConfig(missing)).Scan(context.Background(), schema.Window{})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, schema.RootScope, res.Warnings[0].Scope)
}

func TestCheckFilesystem(t *testing.T) {
	for _, fs := range []string{"ext4", "ZFS", "btrfs", "xfs", "apfs", "ntfs"} {
		assert.NoError(t, CheckFilesystem(fs), fs)
	}
	err := CheckFilesystem("tmpfs")
	assert.True(t, errors.Is(err, ErrUnsupportedFilesystem))
}

func TestMountFor(t *testing.T) {
	mounts := []Mount{
		{Point: "/", FSType: "ext4"},
		{Point: "/tank", FSType: "zfs"},
		{Point: "/tank/data", FSType: "btrfs"},
	}
	tests := map[string]string{
		"/home/u/code":   "ext4",
		"/tank/other":    "zfs",
		"/tank/data/x/y": "btrfs",
		"/tank/database": "zfs",
		"/tank/data":     "btrfs",
	}
	for path, want := range tests {
		m, ok := MountFor(mounts, path)
		require.True(t, ok, path)
		assert.Equal(t, want, m.FSType, path)
	}
	_, ok := MountFor(nil, "/x")
	assert.False(t, ok)
}

func TestParseDarwinMounts(t *testing.T) {
	out := "/dev/disk3s1s1 on / (apfs, sealed, local, read-only, journaled)\n" +
		"devfs on /dev (devfs, local, nobrowse)\n" +
		"/dev/disk3s5 on /System/Volumes/Data (apfs, local, journaled, nobrowse)\n" +
		"junk line\n"
	assert.Equal(t, []Mount{
		{Point: "/", FSType: "apfs"},
		{Point: "/dev", FSType: "devfs"},
		{Point: "/System/Volumes/Data", FSType: "apfs"},
	}, ParseDarwinMounts(out))
}
