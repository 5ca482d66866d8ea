package scan

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mounts")
	content := "/dev/sda1 / ext4 rw,relatime 0 0\n" +
		"tank/data /tank/data zfs rw,xattr 0 0\n" +
		"/dev/sdb1 /mnt/My\\040Disk xfs rw 0 0\n" +
		"broken\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	mounts, err := ReadMounts(path)
	require.NoError(t, err)
	assert.Equal(t, []Mount{
		{Point: "/", FSType: "ext4"},
		{Point: "/tank/data", FSType: "zfs"},
		{Point: "/mnt/My Disk", FSType: "xfs"},
	}, mounts)

	_, err = ReadMounts(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestRankSnapshotRoots(t *testing.T) {
	base := t.TempDir()
	few, many := filepath.Join(base, "few"), filepath.Join(base, "many")
	mkdirs(t, base, "few/s1", "many/s1", "many/s2", "many/s3")

	assert.Equal(t, []string{many, few}, RankSnapshotRoots([]string{few, many}))
	assert.Empty(t, RankSnapshotRoots(nil))
}

func TestIsPreferredRoot(t *testing.T) {
	assert.True(t, isPreferredRoot("/mnt/pool/.zfs/snapshot"))
	assert.True(t, isPreferredRoot("/home/.zfs/snapshot"))
	assert.False(t, isPreferredRoot("/.zfs/snapshot"))
	assert.False(t, isPreferredRoot("/var/lib/.zfs/snapshot"))
}

func TestSelectSnapshots(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "auto-2024-01-01", "auto-2024-01-03", "auto-2024-01-02")
	writeFiles(t, root, "not-a-snapshot")

	assert.Equal(t, []string{"auto-2024-01-03", "auto-2024-01-02"}, SelectSnapshots(root, 2))
	assert.Len(t, SelectSnapshots(root, 0), 3)
	assert.Empty(t, SelectSnapshots(filepath.Join(root, "missing"), 5))
}

func TestSnapshotDate(t *testing.T) {
	tests := []struct {
		name string
		want time.Time
		ok   bool
	}{
		{"zfs-auto-snap_daily-2024-05-06-0000", time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), true},
		{"autosnap_2023-12-31_23:59:01_hourly", time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"manual", time.Time{}, false},
		{"bad-2024-13-45", time.Time{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SnapshotDate(tt.name)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDatasetName(t *testing.T) {
	assert.Equal(t, "tank", datasetName(filepath.Join("/pool", "tank", ".zfs", "snapshot")))
	assert.Equal(t, "snaps", datasetName(filepath.Join("/data", "snaps")))
}
