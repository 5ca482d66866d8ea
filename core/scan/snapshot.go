package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/huangsam/hourglass/core/normalize"
	"github.com/huangsam/hourglass/core/pool"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/schema"
)

// snapshotExcludes are directory names skipped inside snapshot working trees.
var snapshotExcludes = []string{".git", ".hg", ".svn", ".venv", "node_modules", "dist", "build", "__pycache__"}

// SnapshotScanner reads files of git working trees preserved in filesystem
// snapshots. Roots are scanned in parallel; per-file attribution lookups of
// every root share one inflight cap.
type SnapshotScanner struct {
	cfg      contract.SnapshotConfig
	knobs    contract.Knobs
	client   contract.GitClient
	inflight *pool.Inflight
	discover func(context.Context) []string
	log      *logger.Logger
}

var _ Scanner = &SnapshotScanner{}

// NewSnapshotScanner builds a snapshot scanner from the validated config.
func NewSnapshotScanner(cfg *contract.Config, client contract.GitClient) *SnapshotScanner {
	return &SnapshotScanner{
		cfg:      cfg.Snapshot,
		knobs:    cfg.Knobs,
		client:   client,
		inflight: pool.NewInflight(cfg.Knobs.AttributionInflight),
		discover: DiscoverSnapshotRoots,
		log:      logger.Named("scan.snapshot"),
	}
}

// Name implements Scanner.
func (s *SnapshotScanner) Name() schema.ScanSource { return schema.SnapshotScan }

// Inflight exposes the shared attribution cap.
func (s *SnapshotScanner) Inflight() *pool.Inflight { return s.inflight }

// Roots returns the snapshot roots to scan, ranked and limited.
func (s *SnapshotScanner) Roots(ctx context.Context) []string {
	if s.cfg.Root != "" {
		return []string{s.cfg.Root}
	}
	if !s.cfg.Auto {
		return nil
	}
	roots := RankSnapshotRoots(s.discover(ctx))
	if limit := s.knobs.SnapshotRootsLimit; limit > 0 && len(roots) > limit {
		roots = roots[:limit]
	}
	return roots
}

// Scan implements Scanner.
func (s *SnapshotScanner) Scan(ctx context.Context, window schema.Window) (Result, error) {
	var res Result
	roots := s.Roots(ctx)
	if len(roots) == 0 {
		res.Warn(schema.RunScope, "snapshot", errors.New("no snapshot roots found"))
		return res, nil
	}
	s.log.Info().Strs("roots", roots).Str("granularity", string(s.cfg.Granularity)).Msg("Scanning snapshot roots")

	results := pool.Run(ctx, s.knobs.SnapshotRootWorkers, roots, func(ctx context.Context, root string) (Result, error) {
		return s.scanRoot(ctx, root, window), nil
	})
	for _, r := range results {
		if r.Err != nil {
			res.Warnings = append(res.Warnings, contextWarning(ctx, schema.RootScope, roots[r.Index]))
			continue
		}
		res.Append(r.Value)
	}
	s.log.Info().Int("peak_inflight", s.inflight.Peak()).Int("lookups", s.inflight.Completed()).Msg("Snapshot scan done")
	return res, nil
}

// scanRoot walks the newest snapshots of one root within its time budget.
// Whatever was collected before the budget ran out is kept.
func (s *SnapshotScanner) scanRoot(ctx context.Context, root string, window schema.Window) Result {
	var res Result
	rootCtx := ctx
	if s.cfg.RootBudget > 0 {
		var cancel context.CancelFunc
		rootCtx, cancel = context.WithTimeout(ctx, s.cfg.RootBudget)
		defer cancel()
	}

	snapshots := SelectSnapshots(root, s.knobs.SnapshotPerRootLimit)
	for i, snap := range snapshots {
		if rootCtx.Err() != nil {
			break
		}
		// Files in an older snapshot cannot carry a newer mtime.
		if day, ok := SnapshotDate(snap); ok && !window.Start.IsZero() && day.Before(window.Start) {
			continue
		}
		if (i+1)%10 == 0 {
			s.log.Info().Str("root", root).Str("snapshot", snap).Int("index", i+1).Int("total", len(snapshots)).Msg("Snapshot progress")
		}

		base := filepath.Join(root, snap)
		repos := []string{base}
		if !IsGitRepo(base) {
			found, err := DiscoverRepos(base, s.knobs.MaxDepth)
			if err != nil {
				res.Warn(schema.RootScope, base, err)
				continue
			}
			repos = found
		}
		for _, repo := range repos {
			res.Append(s.scanRepo(rootCtx, root, snap, repo, window))
		}
	}
	if rootCtx.Err() != nil {
		res.Warnings = append(res.Warnings, s.stopWarning(ctx, root))
	}
	return res
}

func (s *SnapshotScanner) stopWarning(parent context.Context, root string) schema.Warning {
	if parent.Err() != nil {
		return contextWarning(parent, schema.RootScope, root)
	}
	return warning(schema.RootScope, root, fmt.Errorf("%w after %s", ErrBudgetExceeded, s.cfg.RootBudget))
}

// scanRepo emits one event per file of a working tree inside a snapshot.
func (s *SnapshotScanner) scanRepo(ctx context.Context, root, snap, repo string, window schema.Window) Result {
	var res Result
	files, err := listTreeFiles(ctx, repo, snapshotExcludes)
	if err != nil && ctx.Err() == nil {
		res.Warn(schema.RepositoryScope, repo, err)
	}
	name := filepath.Base(repo)
	if repo == filepath.Join(root, snap) {
		name = datasetName(root)
	}

	if s.cfg.Granularity == schema.CoarseGranularity {
		for _, f := range files {
			if window.Contains(f.ModTime) {
				res.Events = append(res.Events, normalize.FromSnapshotFile(name, schema.SnapshotFileRecord{
					Root: root, Snapshot: snap, RelPath: f.RelPath, ModTime: f.ModTime,
				}))
			}
		}
		return res
	}

	var failed atomic.Int64
	results := pool.Run(ctx, s.knobs.SnapshotFileWorkers, files, func(ctx context.Context, f treeFile) (schema.SnapshotFileRecord, error) {
		rec := schema.SnapshotFileRecord{Root: root, Snapshot: snap, RelPath: f.RelPath, ModTime: f.ModTime}
		err := s.inflight.Do(ctx, func() error {
			out, err := s.client.GetLastCommitForPath(ctx, repo, f.RelPath)
			if err != nil {
				return err
			}
			if hash, author, when, ok := parseLastCommit(out); ok {
				rec.Commit, rec.Author, rec.CommitTime = hash, author, when
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			// The file still counts, just unattributed.
			failed.Add(1)
			return rec, nil
		}
		return rec, err
	})
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		ev := normalize.FromSnapshotFile(name, r.Value)
		if window.Contains(ev.Timestamp) {
			res.Events = append(res.Events, ev)
		}
	}
	if n := failed.Load(); n > 0 {
		res.Warn(schema.RepositoryScope, repo, fmt.Errorf("%d attribution lookups failed", n))
	}
	return res
}

// datasetName names the dataset a snapshot root belongs to.
func datasetName(root string) string {
	root = filepath.Clean(root)
	if trimmed, ok := strings.CutSuffix(root, string(filepath.Separator)+snapshotSubdir); ok && trimmed != "" {
		return filepath.Base(trimmed)
	}
	return filepath.Base(root)
}

// treeFile is a regular file found in a working tree.
type treeFile struct {
	RelPath string
	ModTime time.Time
}

// listTreeFiles lists regular files under dir, skipping excluded directory
// names and dotfiles. Paths are slash separated and relative to dir.
func listTreeFiles(ctx context.Context, dir string, excludes []string) ([]treeFile, error) {
	skip := make(map[string]struct{}, len(excludes))
	for _, e := range excludes {
		skip[e] = struct{}{}
	}
	var files []treeFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if _, ok := skip[d.Name()]; ok && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		files = append(files, treeFile{RelPath: filepath.ToSlash(rel), ModTime: info.ModTime().UTC()})
		return nil
	})
	return files, err
}
