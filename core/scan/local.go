package scan

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/huangsam/hourglass/core/normalize"
	"github.com/huangsam/hourglass/core/pool"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/schema"
)

// LocalScanner reads commit history from git repositories on disk.
type LocalScanner struct {
	paths      []string
	maxDepth   int
	workers    int
	client     contract.GitClient
	attributor *Attributor
	log        *logger.Logger
}

var _ Scanner = &LocalScanner{}

// NewLocalScanner builds a local scanner from the validated config.
func NewLocalScanner(cfg *contract.Config, client contract.GitClient) (*LocalScanner, error) {
	invokers, err := LoadAssistantMap(cfg.Local.AssistantMap)
	if err != nil {
		return nil, err
	}
	return &LocalScanner{
		paths:      cfg.Local.Paths,
		maxDepth:   cfg.Knobs.MaxDepth,
		workers:    cfg.Knobs.LocalWorkers,
		client:     client,
		attributor: NewAttributor(cfg.Local.CoAuthors, invokers),
		log:        logger.Named("scan.local"),
	}, nil
}

// Name implements Scanner.
func (s *LocalScanner) Name() schema.ScanSource { return schema.LocalScan }

// Repos resolves the configured paths into repositories. A path that is a
// repository is used as is; any other directory is searched.
func (s *LocalScanner) Repos() ([]string, []schema.Warning) {
	var repos []string
	var warnings []schema.Warning
	for _, p := range s.paths {
		if IsGitRepo(p) {
			repos = append(repos, filepath.Clean(p))
			continue
		}
		found, err := DiscoverRepos(p, s.maxDepth)
		if err != nil {
			warnings = append(warnings, warning(schema.RootScope, p, err))
			continue
		}
		if len(found) == 0 {
			warnings = append(warnings, warning(schema.RootScope, p, fmt.Errorf("no git repositories found")))
		}
		repos = append(repos, found...)
	}
	slices.Sort(repos)
	return slices.Compact(repos), warnings
}

// Scan implements Scanner.
func (s *LocalScanner) Scan(ctx context.Context, window schema.Window) (Result, error) {
	repos, warnings := s.Repos()
	res := Result{Warnings: warnings}
	s.log.Info().Int("repos", len(repos)).Int("workers", s.workers).Msg("Scanning local repositories")

	results := pool.Run(ctx, s.workers, repos, func(ctx context.Context, repo string) ([]schema.Event, error) {
		return s.scanRepo(ctx, repo, window)
	})
	for _, r := range results {
		repo := repos[r.Index]
		switch {
		case r.Err != nil && ctx.Err() != nil:
			res.Warnings = append(res.Warnings, contextWarning(ctx, schema.RepositoryScope, repo))
		case r.Err != nil:
			s.log.Warn().Str("repo", repo).Err(r.Err).Msg("Skipping repository")
			res.Warn(schema.RepositoryScope, repo, r.Err)
		default:
			res.Events = append(res.Events, r.Value...)
		}
	}
	return res, nil
}

func (s *LocalScanner) scanRepo(ctx context.Context, repo string, window schema.Window) ([]schema.Event, error) {
	out, err := s.client.GetActivityLog(ctx, repo, window.Since(), window.Until())
	if err != nil {
		return nil, err
	}
	records := parseActivityLog(out)

	var messages map[string]commitMessage
	if s.attributor.NeedsMessages() && len(records) > 0 {
		raw, err := s.client.GetCommitMessages(ctx, repo, window.Since(), window.Until())
		if err != nil {
			// Attribution degrades to the author name.
			s.log.Warn().Str("repo", repo).Err(err).Msg("Reading commit messages failed")
		} else {
			messages = parseCommitMessages(raw)
		}
	}

	name := filepath.Base(repo)
	var events []schema.Event
	for _, rec := range records {
		if !window.Contains(rec.Date) {
			continue
		}
		rec.AttributedTo = s.attributor.Resolve(Identity{Name: rec.Author, Email: rec.Email}, messages[rec.Hash].Body)
		events = append(events, normalize.FromLocalCommit(name, rec))
		for _, path := range rec.Files {
			events = append(events, normalize.FromLocalFileChange(name, schema.FileChangeRecord{
				Commit:       rec.Hash,
				Author:       rec.Author,
				Date:         rec.Date,
				Path:         path,
				AttributedTo: rec.AttributedTo,
			}))
		}
	}
	s.log.Info().Str("repo", name).Int("commits", len(records)).Int("events", len(events)).Msg("Scanned repository")
	return events, nil
}
