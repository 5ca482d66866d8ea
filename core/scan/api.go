package scan

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/hourglass/core/normalize"
	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/huangsam/hourglass/internal/logger"
	"github.com/huangsam/hourglass/schema"
)

// GitHub is the subset of the REST API the remote scanner uses.
type GitHub interface {
	AuthenticatedUser(ctx context.Context) (ghapi.User, error)
	ListRepos(ctx context.Context, q ghapi.RepoQuery) ([]ghapi.Repo, error)
	ListContributors(ctx context.Context, fullName string) ([]ghapi.Contributor, error)
	ListCommits(ctx context.Context, fullName string, since, until time.Time) ([]ghapi.Commit, error)
	GetCommit(ctx context.Context, fullName, sha string) (ghapi.CommitDetail, error)
	ListPulls(ctx context.Context, fullName string, since time.Time) ([]ghapi.Pull, error)
	ListIssues(ctx context.Context, fullName string, since time.Time) ([]ghapi.Issue, error)
	ListIssueComments(ctx context.Context, fullName string, number int) ([]ghapi.Comment, error)
	ListReviewComments(ctx context.Context, fullName string, number int) ([]ghapi.Comment, error)
	ListReviews(ctx context.Context, fullName string, number int) ([]ghapi.Review, error)
}

var _ GitHub = &ghapi.Client{}

// APIScanner reads commits, pull requests and issues from the REST API.
// Repositories are scanned one after another.
type APIScanner struct {
	cfg   contract.APIConfig
	gh    GitHub
	cache contract.CacheStore
	log   *logger.Logger
	now   func() time.Time
}

var _ Scanner = &APIScanner{}

// NewAPIScanner builds a remote scanner. cache may be nil.
func NewAPIScanner(cfg contract.APIConfig, gh GitHub, cache contract.CacheStore) *APIScanner {
	return &APIScanner{cfg: cfg, gh: gh, cache: cache, log: logger.Named("scan.api"), now: time.Now}
}

// Name implements Scanner.
func (s *APIScanner) Name() schema.ScanSource { return schema.APIScan }

// Scan implements Scanner. Only a failure to resolve the token owner or to
// list repositories fails the whole scan; every other failure is a warning.
func (s *APIScanner) Scan(ctx context.Context, window schema.Window) (Result, error) {
	var res Result

	repos, err := s.Repos(ctx, &res)
	if err != nil {
		return res, err
	}
	s.log.Info().Int("repos", len(repos)).Msg("Scanning repositories")

	for _, repo := range repos {
		if ctx.Err() != nil {
			res.Warnings = append(res.Warnings, contextWarning(ctx, schema.RepositoryScope, repo.FullName))
			continue
		}
		now := s.now()
		store := s.cache
		if !windowSettled(window, now) {
			store = nil
		}
		key := repoCacheKey(repo, window, s.cfg)
		repoRes, hit, err := cachedScan(ctx, store, key, now, func(ctx context.Context) (Result, error) {
			return s.scanRepo(ctx, repo.FullName, window)
		})
		if err != nil {
			s.log.Warn().Str("repo", repo.FullName).Err(err).Msg("Skipping repository")
			res.Warn(schema.RepositoryScope, repo.FullName, err)
			continue
		}
		s.log.Info().Str("repo", repo.FullName).Bool("cached", hit).Int("events", len(repoRes.Events)).Msg("Scanned repository")
		res.Append(repoRes)
	}
	return res, nil
}

// Repos resolves and filters the repositories to scan.
func (s *APIScanner) Repos(ctx context.Context, res *Result) ([]ghapi.Repo, error) {
	target := s.cfg.User
	self := false
	if s.cfg.Token != "" {
		me, err := s.gh.AuthenticatedUser(ctx)
		switch {
		case ghapi.KindOf(err) == ghapi.Unauthorized:
			return nil, fmt.Errorf("resolve authenticated user: %w", err)
		case err != nil:
			res.Warn(schema.RunScope, "authenticated user", err)
		default:
			if target == "" {
				target = me.Login
			}
			self = strings.EqualFold(me.Login, target)
		}
	}
	if target == "" && s.cfg.Org == "" {
		return nil, &contract.ConfigError{Field: "user", Err: fmt.Errorf("no user, org or resolvable token")}
	}

	repos, err := s.gh.ListRepos(ctx, ghapi.RepoQuery{Org: s.cfg.Org, User: target, Self: self})
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	repos = FilterRepos(repos, s.cfg.IncludeRepos, s.cfg.ExcludeRepos, ownerFilter(s.cfg.RestrictOwner, cmp.Or(s.cfg.Org, target)))

	if s.cfg.ContributedBy == "" {
		return repos, nil
	}
	kept := repos[:0]
	for _, repo := range repos {
		contributors, err := s.gh.ListContributors(ctx, repo.FullName)
		if err != nil {
			res.Warn(schema.RepositoryScope, repo.FullName, fmt.Errorf("list contributors: %w", err))
			continue
		}
		if hasContributor(contributors, s.cfg.ContributedBy) {
			kept = append(kept, repo)
		}
	}
	return kept, nil
}

func ownerFilter(restrict bool, owner string) string {
	if restrict {
		return owner
	}
	return ""
}

// FilterRepos applies the include, exclude and owner filters. Include and
// exclude entries match either the short or the full repository name.
func FilterRepos(repos []ghapi.Repo, include, exclude []string, owner string) []ghapi.Repo {
	matches := func(list []string, r ghapi.Repo) bool {
		return slices.ContainsFunc(list, func(name string) bool {
			name = strings.TrimSpace(name)
			return name != "" && (name == r.Name || name == r.FullName)
		})
	}
	var out []ghapi.Repo
	for _, r := range repos {
		if len(include) > 0 && !matches(include, r) {
			continue
		}
		if matches(exclude, r) {
			continue
		}
		if owner != "" && !strings.EqualFold(r.Owner.Login, owner) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func hasContributor(contributors []ghapi.Contributor, user string) bool {
	want := normalize.FoldUser(user)
	return slices.ContainsFunc(contributors, func(c ghapi.Contributor) bool {
		return normalize.FoldUser(c.Login) == want
	})
}

// scanRepo collects every event of one repository. Failing to list commits
// fails the repository; failures on individual items become warnings.
func (s *APIScanner) scanRepo(ctx context.Context, repo string, window schema.Window) (Result, error) {
	var res Result

	commits, err := s.gh.ListCommits(ctx, repo, window.Since(), window.Until())
	if err != nil {
		return res, fmt.Errorf("list commits: %w", err)
	}
	for _, c := range commits {
		ts, ok := normalize.CommitTime(c)
		if !ok || !window.Contains(ts) {
			continue
		}
		s.addCommit(ctx, repo, c, &res)
	}

	if s.cfg.Fast {
		return res, nil
	}

	if err := s.addPulls(ctx, repo, window, &res); err != nil {
		res.Warn(schema.RepositoryScope, repo, fmt.Errorf("list pulls: %w", err))
	}
	if err := s.addIssues(ctx, repo, window, &res); err != nil {
		res.Warn(schema.RepositoryScope, repo, fmt.Errorf("list issues: %w", err))
	}
	return res, nil
}

func (s *APIScanner) wantDetail() bool {
	return !s.cfg.Fast && !s.cfg.SkipCommitStats
}

func (s *APIScanner) addCommit(ctx context.Context, repo string, c ghapi.Commit, res *Result) {
	if !s.wantDetail() {
		res.Events = append(res.Events, normalize.FromAPICommit(repo, c, ghapi.CommitStats{}))
		return
	}
	detail, err := s.gh.GetCommit(ctx, repo, c.SHA)
	if err != nil {
		// Keep the commit itself, only its stats are lost.
		res.Warn(schema.ItemScope, repo+"@"+c.SHA, fmt.Errorf("commit detail: %w", err))
		res.Events = append(res.Events, normalize.FromAPICommit(repo, c, ghapi.CommitStats{}))
		return
	}
	res.Events = append(res.Events, normalize.FromAPICommit(repo, c, detail.Stats))
	if s.cfg.SkipFileModifications {
		return
	}
	for _, f := range detail.Files {
		if f.Filename != "" {
			res.Events = append(res.Events, normalize.FromAPICommitFile(repo, c, f))
		}
	}
}

func (s *APIScanner) addPulls(ctx context.Context, repo string, window schema.Window, res *Result) error {
	pulls, err := s.gh.ListPulls(ctx, repo, window.Since())
	if err != nil {
		return err
	}
	for _, p := range pulls {
		for _, lc := range []struct {
			kind schema.Kind
			at   *time.Time
		}{
			{schema.CreatedKind, p.CreatedAt},
			{schema.MergedKind, p.MergedAt},
			{schema.ClosedKind, p.ClosedAt},
		} {
			if lc.at != nil && window.Contains(*lc.at) {
				res.Events = append(res.Events, normalize.FromAPIPull(repo, p, lc.kind, *lc.at))
			}
		}
		s.addPullDiscussion(ctx, repo, p, window, res)
	}
	return nil
}

func (s *APIScanner) addPullDiscussion(ctx context.Context, repo string, p ghapi.Pull, window schema.Window, res *Result) {
	target := fmt.Sprintf("%s#%d", repo, p.Number)
	if s.cfg.IncludePRComments {
		comments, err := s.gh.ListIssueComments(ctx, repo, p.Number)
		if err != nil {
			res.Warn(schema.ItemScope, target, fmt.Errorf("pull comments: %w", err))
		}
		for _, c := range comments {
			if c.CreatedAt != nil && window.Contains(*c.CreatedAt) {
				res.Events = append(res.Events, normalize.FromAPIPullComment(repo, p, c))
			}
		}
	}
	if s.cfg.IncludeReviewComments {
		comments, err := s.gh.ListReviewComments(ctx, repo, p.Number)
		if err != nil {
			res.Warn(schema.ItemScope, target, fmt.Errorf("review comments: %w", err))
		}
		for _, c := range comments {
			if c.CreatedAt != nil && window.Contains(*c.CreatedAt) {
				res.Events = append(res.Events, normalize.FromAPIPullComment(repo, p, c))
			}
		}
	}
	if s.cfg.IncludeReviews {
		reviews, err := s.gh.ListReviews(ctx, repo, p.Number)
		if err != nil {
			res.Warn(schema.ItemScope, target, fmt.Errorf("reviews: %w", err))
		}
		for _, r := range reviews {
			if r.SubmittedAt != nil && window.Contains(*r.SubmittedAt) {
				res.Events = append(res.Events, normalize.FromAPIReview(repo, p, r))
			}
		}
	}
}

func (s *APIScanner) addIssues(ctx context.Context, repo string, window schema.Window, res *Result) error {
	issues, err := s.gh.ListIssues(ctx, repo, window.Since())
	if err != nil {
		return err
	}
	for _, i := range issues {
		// Pull request conversations are already read when pull comments are on.
		if i.IsPull() && (!s.cfg.IncludeIssuePRComments || s.cfg.IncludePRComments) {
			continue
		}
		if !i.IsPull() {
			if i.CreatedAt != nil && window.Contains(*i.CreatedAt) {
				res.Events = append(res.Events, normalize.FromAPIIssue(repo, i, schema.CreatedKind, *i.CreatedAt))
			}
			if i.ClosedAt != nil && window.Contains(*i.ClosedAt) {
				res.Events = append(res.Events, normalize.FromAPIIssue(repo, i, schema.ClosedKind, *i.ClosedAt))
			}
		}
		comments, err := s.gh.ListIssueComments(ctx, repo, i.Number)
		if err != nil {
			res.Warn(schema.ItemScope, fmt.Sprintf("%s#%d", repo, i.Number), fmt.Errorf("issue comments: %w", err))
			continue
		}
		for _, c := range comments {
			if c.CreatedAt != nil && window.Contains(*c.CreatedAt) {
				res.Events = append(res.Events, normalize.FromAPIComment(repo, i, c))
			}
		}
	}
	return nil
}
