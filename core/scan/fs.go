package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangsam/hourglass/core/normalize"
	"github.com/huangsam/hourglass/core/pool"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/schema"
)

// FSScanner walks plain directory trees and reports files by mtime.
type FSScanner struct {
	cfg      contract.FSConfig
	workers  int
	maxFiles int
	gate     func(ctx context.Context, root string) (string, error)
	log      *logger.Logger
}

var _ Scanner = &FSScanner{}

// NewFSScanner builds a filesystem scanner from the validated config.
func NewFSScanner(cfg *contract.Config) *FSScanner {
	return &FSScanner{
		cfg:      cfg.FS,
		workers:  cfg.Knobs.FSWorkers,
		maxFiles: cfg.Knobs.FSMaxFiles,
		gate:     DetectFilesystem,
		log:      logger.Named("scan.fs"),
	}
}

// Name implements Scanner.
func (s *FSScanner) Name() schema.ScanSource { return schema.FilesystemScan }

// Scan implements Scanner. Roots on an unsupported filesystem are skipped
// with a warning unless the gate is forced open.
func (s *FSScanner) Scan(ctx context.Context, window schema.Window) (Result, error) {
	var res Result
	results := pool.Run(ctx, s.workers, s.cfg.Roots, func(ctx context.Context, root string) (Result, error) {
		if !s.cfg.Force {
			fstype, err := s.gate(ctx, root)
			if err != nil {
				return Result{}, err
			}
			s.log.Debug().Str("root", root).Str("fstype", fstype).Msg("Filesystem accepted")
		}
		return s.scanRoot(ctx, root, window)
	})
	for _, r := range results {
		root := s.cfg.Roots[r.Index]
		switch {
		case r.Err != nil && ctx.Err() != nil:
			res.Warnings = append(res.Warnings, contextWarning(ctx, schema.RootScope, root))
		case r.Err != nil:
			s.log.Warn().Str("root", root).Err(r.Err).Msg("Skipping root")
			res.Warn(schema.RootScope, root, r.Err)
		default:
			res.Append(r.Value)
		}
	}
	return res, nil
}

// scanRoot walks one root with an explicit stack so deep trees cannot
// exhaust the goroutine stack.
func (s *FSScanner) scanRoot(ctx context.Context, root string, window schema.Window) (Result, error) {
	var res Result
	skip := make(map[string]struct{}, len(s.cfg.Excludes))
	for _, e := range s.cfg.Excludes {
		skip[e] = struct{}{}
	}
	if _, err := os.ReadDir(root); err != nil {
		return res, err
	}

	var seen int
	lastBeat := time.Now()
	stack := []string{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			res.Warnings = append(res.Warnings, contextWarning(ctx, schema.RootScope, root))
			return res, nil
		}
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			s.log.Debug().Str("dir", dir).Err(err).Msg("Unreadable directory")
			continue
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			if e.IsDir() {
				if _, ok := skip[e.Name()]; !ok {
					stack = append(stack, path)
				}
				continue
			}
			if !e.Type().IsRegular() {
				continue
			}
			seen++
			if s.maxFiles > 0 && seen > s.maxFiles {
				res.Warn(schema.RootScope, root, fmt.Errorf("stopped after %d files", s.maxFiles))
				return res, nil
			}
			if s.cfg.Progress > 0 && time.Since(lastBeat) >= s.cfg.Progress {
				s.log.Info().Str("root", root).Int("files", seen).Int("events", len(res.Events)).Msg("Filesystem progress")
				lastBeat = time.Now()
			}
			info, err := e.Info()
			if err != nil || !window.Contains(info.ModTime()) {
				continue
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				continue
			}
			res.Events = append(res.Events, normalize.FromFSFile(schema.FSFileRecord{
				Root:    root,
				RelPath: filepath.ToSlash(rel),
				ModTime: info.ModTime(),
			}))
		}
	}
	s.log.Info().Str("root", root).Int("files", seen).Int("events", len(res.Events)).Msg("Scanned root")
	return res, nil
}

// supportedFilesystems are the mount types the walker is known to handle well.
var supportedFilesystems = map[string]struct{}{
	"ext2": {}, "ext3": {}, "ext4": {}, "zfs": {}, "btrfs": {}, "xfs": {},
	"apfs": {}, "hfs": {}, "ntfs": {},
}

// MountFor returns the mount with the longest mount point containing path.
func MountFor(mounts []Mount, path string) (Mount, bool) {
	var best Mount
	found := false
	for _, m := range mounts {
		if !pathWithin(path, m.Point) {
			continue
		}
		if !found || len(m.Point) > len(best.Point) {
			best, found = m, true
		}
	}
	return best, found
}

func pathWithin(path, dir string) bool {
	if dir == "/" || path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, "/")+"/")
}

// CheckFilesystem rejects a filesystem type outside the supported set.
func CheckFilesystem(fstype string) error {
	if _, ok := supportedFilesystems[strings.ToLower(fstype)]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFilesystem, fstype)
	}
	return nil
}

// ParseDarwinMounts reads the output of mount(8) on macOS, where each line
// looks like "/dev/disk1s1 on / (apfs, local, journaled)".
func ParseDarwinMounts(out string) []Mount {
	var mounts []Mount
	for line := range strings.SplitSeq(out, "\n") {
		_, rest, ok := strings.Cut(line, " on ")
		if !ok {
			continue
		}
		open := strings.LastIndex(rest, " (")
		if open < 0 {
			continue
		}
		opts := strings.TrimSuffix(rest[open+2:], ")")
		fstype, _, _ := strings.Cut(opts, ",")
		mounts = append(mounts, Mount{Point: rest[:open], FSType: strings.TrimSpace(fstype)})
	}
	return mounts
}
