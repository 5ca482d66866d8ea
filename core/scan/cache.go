package scan

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/huangsam/hourglass/schema"
)

// currentCacheVersion defines the version of the cached repository scans
const currentCacheVersion = 1

// cacheTTL is how long a cached repository scan stays fresh
const cacheTTL = 24 * time.Hour

// cachedScan wraps a repository scan with the scan store. Results that
// carry warnings are not stored so a partial scan is retried next time.
func cachedScan(ctx context.Context, store contract.CacheStore, key string, now time.Time, scan func(context.Context) (Result, error)) (Result, bool, error) {
	if store == nil {
		res, err := scan(ctx)
		return res, false, err
	}
	if events, ok := checkCacheHit(store, key, now); ok {
		return Result{Events: events}, true, nil
	}
	res, err := computeAndStore(ctx, store, key, now, scan)
	return res, false, err
}

// checkCacheHit attempts to retrieve and validate a cached result
func checkCacheHit(store contract.CacheStore, key string, now time.Time) ([]schema.Event, bool) {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil, false // Cache miss
	}
	if version != currentCacheVersion || now.Sub(time.Unix(ts, 0)) > cacheTTL {
		return nil, false // Stale or version mismatch
	}
	var events []schema.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, false
	}
	return events, true
}

// computeAndStore runs the scan and stores a clean result
func computeAndStore(ctx context.Context, store contract.CacheStore, key string, now time.Time, scan func(context.Context) (Result, error)) (Result, error) {
	res, err := scan(ctx)
	if err != nil || len(res.Warnings) > 0 {
		return res, err
	}
	if data, err := json.Marshal(res.Events); err == nil {
		_ = store.Set(key, data, currentCacheVersion, now.Unix())
	}
	return res, nil
}

// repoCacheKey creates a unique key from the repository and its last push
// and update times, the window and the options that change what a scan returns.
func repoCacheKey(repo ghapi.Repo, window schema.Window, opts contract.APIConfig) string {
	key := fmt.Sprintf("api:%s:%d:%d:%s:%s:%t:%t:%t:%t:%t:%t:%t:%s",
		strings.ToLower(repo.FullName),
		repo.PushedAt.Unix(),
		repo.UpdatedAt.Unix(),
		formatBound(window.Start),
		formatBound(window.End),
		opts.Fast,
		opts.SkipCommitStats,
		opts.SkipFileModifications,
		opts.IncludePRComments,
		opts.IncludeReviewComments,
		opts.IncludeReviews,
		opts.IncludeIssuePRComments,
		opts.BaseURL,
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(key)))
}

// windowSettled reports whether the window ended before today. Only settled
// windows are cached since issue and comment activity does not move the
// repository timestamps.
func windowSettled(window schema.Window, now time.Time) bool {
	return !window.End.IsZero() && window.End.Before(schema.DateOf(now))
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(schema.DateLayout)
}
