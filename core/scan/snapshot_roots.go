package scan

import (
	"bufio"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/hourglass/schema"
)

// snapshotSubdir is where a dataset exposes its snapshots.
var snapshotSubdir = filepath.Join(".zfs", "snapshot")

// Mount tables, tried in order.
var mountTables = []string{"/proc/self/mounts", "/proc/mounts"}

// Dataset parents searched one level deep.
var commonDatasetRoots = []string{"/mnt", "/media", "/storage", "/srv", "/pool", "/tank"}

// Snapshot roots checked last.
var fallbackSnapshotRoots = []string{"/.zfs/snapshot", "/mnt/pool/.zfs/snapshot"}

// Roots under these prefixes hold user data and are scanned first.
var preferredRootPrefixes = []string{"/storage/", "/mnt/", "/media/", "/tank/", "/pool/", "/home/"}

var snapshotDateRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

// Mount is one entry of the mount table.
type Mount struct {
	Point  string
	FSType string
}

// ReadMounts parses a mount table in /proc/mounts format.
func ReadMounts(path string) ([]Mount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var mounts []Mount
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		mounts = append(mounts, Mount{Point: unescapeMount(fields[1]), FSType: fields[2]})
	}
	return mounts, sc.Err()
}

// unescapeMount decodes the octal escapes the kernel uses for spaces and tabs.
func unescapeMount(s string) string {
	r := strings.NewReplacer(`\040`, " ", `\011`, "\t", `\012`, "\n", `\134`, `\`)
	return r.Replace(s)
}

func systemMounts() []Mount {
	for _, table := range mountTables {
		if mounts, err := ReadMounts(table); err == nil {
			return mounts
		}
	}
	return nil
}

// zfsMountpoints asks the zfs tool for dataset mountpoints. It returns
// nothing when the tool is missing or fails.
func zfsMountpoints(ctx context.Context) []string {
	if _, err := exec.LookPath("zfs"); err != nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "zfs", "list", "-H", "-o", "mountpoint").Output()
	if err != nil {
		return nil
	}
	var points []string
	for line := range strings.SplitSeq(string(out), "\n") {
		line = strings.TrimSpace(line)
		switch line {
		case "", "-", "none", "legacy":
			continue
		}
		if filepath.IsAbs(line) {
			points = append(points, line)
		}
	}
	return points
}

// DiscoverSnapshotRoots finds snapshot directories from the mount table,
// the zfs tool, common dataset parents and a few fallbacks. The result is
// deduplicated in discovery order.
func DiscoverSnapshotRoots(ctx context.Context) []string {
	var candidates []string
	for _, m := range systemMounts() {
		candidates = append(candidates, filepath.Join(m.Point, snapshotSubdir))
	}
	for _, mp := range zfsMountpoints(ctx) {
		candidates = append(candidates, filepath.Join(mp, snapshotSubdir))
	}
	for _, parent := range commonDatasetRoots {
		entries, err := os.ReadDir(parent)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
				candidates = append(candidates, filepath.Join(parent, e.Name(), snapshotSubdir))
			}
		}
	}
	candidates = append(candidates, fallbackSnapshotRoots...)

	seen := make(map[string]struct{})
	var roots []string
	for _, c := range candidates {
		if !isDir(c) {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(c); err == nil {
			c = resolved
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		roots = append(roots, c)
	}
	return roots
}

// RankSnapshotRoots orders roots so user data mounts come first, then roots
// with more snapshots. Ties keep their discovery order.
func RankSnapshotRoots(roots []string) []string {
	type scored struct {
		root      string
		preferred bool
		count     int
	}
	items := make([]scored, 0, len(roots))
	for _, r := range roots {
		items = append(items, scored{root: r, preferred: isPreferredRoot(r), count: len(listSnapshotDirs(r))})
	}
	slices.SortStableFunc(items, func(a, b scored) int {
		if a.preferred != b.preferred {
			if a.preferred {
				return -1
			}
			return 1
		}
		return b.count - a.count
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.root
	}
	return out
}

func isPreferredRoot(root string) bool {
	root = filepath.ToSlash(root)
	return slices.ContainsFunc(preferredRootPrefixes, func(p string) bool {
		return strings.HasPrefix(root, p)
	})
}

// listSnapshotDirs returns the snapshot directory names under root.
func listSnapshotDirs(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}

// SelectSnapshots returns up to limit snapshots newest first. Names are
// assumed to sort chronologically, which holds for the common tools.
func SelectSnapshots(root string, limit int) []string {
	names := listSnapshotDirs(root)
	slices.Sort(names)
	slices.Reverse(names)
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}

// SnapshotDate extracts the first YYYY-MM-DD found in a snapshot name.
func SnapshotDate(name string) (time.Time, bool) {
	m := snapshotDateRe.FindString(name)
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(schema.DateLayout, m)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
