package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/hourglass/internal/contract"
	"github.com/huangsam/hourglass/internal/ghapi"
	"github.com/huangsam/hourglass/internal/iocache"
	"github.com/huangsam/hourglass/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCachedScan(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	events := []schema.Event{{Source: schema.APICommit, Repository: "o/r", User: "alice", Timestamp: now, Kind: schema.CommittedKind, Reference: "c1"}}
	payload, err := json.Marshal(events)
	require.NoError(t, err)

	fresh := func(calls *int) func(context.Context) (Result, error) {
		return func(context.Context) (Result, error) {
			*calls++
			return Result{Events: events}, nil
		}
	}

	t.Run("miss computes and stores", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Get", "k").Return([]byte(nil), 0, int64(0), sql.ErrNoRows)
		store.On("Set", "k", payload, currentCacheVersion, now.Unix()).Return(nil)

		var calls int
		res, hit, err := cachedScan(context.Background(), store, "k", now, fresh(&calls))
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 1, calls)
		assert.Equal(t, events, res.Events)
		store.AssertExpectations(t)
	})

	t.Run("fresh hit skips the scan", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Get", "k").Return(payload, currentCacheVersion, now.Add(-time.Hour).Unix(), nil)

		var calls int
		res, hit, err := cachedScan(context.Background(), store, "k", now, fresh(&calls))
		require.NoError(t, err)
		assert.True(t, hit)
		assert.Zero(t, calls)
		assert.Equal(t, events, res.Events)
	})

	t.Run("stale and old version entries are recomputed", func(t *testing.T) {
		for _, entry := range []struct {
			version int
			ts      int64
		}{
			{currentCacheVersion, now.Add(-cacheTTL - time.Minute).Unix()},
			{currentCacheVersion + 1, now.Unix()},
		} {
			store := &iocache.MockCacheStore{}
			store.On("Get", "k").Return(payload, entry.version, entry.ts, nil)
			store.On("Set", "k", mock.Anything, currentCacheVersion, now.Unix()).Return(nil)

			var calls int
			_, hit, err := cachedScan(context.Background(), store, "k", now, fresh(&calls))
			require.NoError(t, err)
			assert.False(t, hit)
			assert.Equal(t, 1, calls)
		}
	})

	t.Run("partial results are not stored", func(t *testing.T) {
		store := &iocache.MockCacheStore{}
		store.On("Get", "k").Return([]byte(nil), 0, int64(0), sql.ErrNoRows)

		res, _, err := cachedScan(context.Background(), store, "k", now, func(context.Context) (Result, error) {
			return Result{Events: events, Warnings: []schema.Warning{{Scope: schema.ItemScope, Target: "x"}}}, nil
		})
		require.NoError(t, err)
		assert.Len(t, res.Warnings, 1)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("nil store always scans", func(t *testing.T) {
		var calls int
		_, hit, err := cachedScan(context.Background(), nil, "k", now, fresh(&calls))
		require.NoError(t, err)
		assert.False(t, hit)
		assert.Equal(t, 1, calls)
	})
}

func TestRepoCacheKey(t *testing.T) {
	base := contract.APIConfig{BaseURL: "https://api.github.com"}
	repo := ghRepo("Org", "Repo")
	repo.PushedAt = time.Date(2024, 3, 30, 8, 0, 0, 0, time.UTC)
	k1 := repoCacheKey(repo, apiWindow, base)
	assert.Len(t, k1, 64)

	lower := repo
	lower.FullName = "org/repo"
	assert.Equal(t, k1, repoCacheKey(lower, apiWindow, base), "repository names are case-insensitive")

	fast := base
	fast.Fast = true
	assert.NotEqual(t, k1, repoCacheKey(repo, apiWindow, fast))
	assert.NotEqual(t, k1, repoCacheKey(repo, schema.Window{}, base))

	pushed := repo
	pushed.PushedAt = repo.PushedAt.Add(time.Minute)
	assert.NotEqual(t, k1, repoCacheKey(pushed, apiWindow, base), "a new push changes the key")

	updated := repo
	updated.UpdatedAt = repo.PushedAt
	assert.NotEqual(t, k1, repoCacheKey(updated, apiWindow, base))

	withToken := base
	withToken.Token = "secret"
	assert.Equal(t, k1, repoCacheKey(repo, apiWindow, withToken), "the token never changes the key")
}

func TestWindowSettled(t *testing.T) {
	now := time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		window schema.Window
		want   bool
	}{
		{"ended yesterday", schema.NewWindow(time.Time{}, now.AddDate(0, 0, -1)), true},
		{"ends today", schema.NewWindow(apiWindow.Start, now), false},
		{"ends later", schema.NewWindow(apiWindow.Start, now.AddDate(0, 0, 3)), false},
		{"open ended", schema.NewWindow(apiWindow.Start, time.Time{}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, windowSettled(tt.window, now))
		})
	}
}

func TestAPIScanner_CacheFollowsRepoState(t *testing.T) {
	cfg := contract.APIConfig{Org: "org", Fast: true}
	repo := ghRepo("org", "r")
	repo.PushedAt = time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	pushed := repo
	pushed.PushedAt = repo.PushedAt.Add(time.Hour)

	cached, err := json.Marshal([]schema.Event{{Source: schema.APICommit, Repository: "org/r", User: "alice", Timestamp: *march(2, 1), Kind: schema.CommittedKind, Reference: "c1"}})
	require.NoError(t, err)
	now := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	t.Run("unchanged repository is served from the cache", func(t *testing.T) {
		gh := &MockGitHub{}
		gh.On("ListRepos", mock.Anything, mock.Anything).Return([]ghapi.Repo{repo}, nil)
		store := &iocache.MockCacheStore{}
		store.On("Get", repoCacheKey(repo, apiWindow, cfg)).Return(cached, currentCacheVersion, now.Add(-time.Hour).Unix(), nil)

		s := NewAPIScanner(cfg, gh, store)
		s.now = func() time.Time { return now }
		res, err := s.Scan(context.Background(), apiWindow)
		require.NoError(t, err)
		assert.Len(t, res.Events, 1)
		gh.AssertNotCalled(t, "ListCommits", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a push misses the cache", func(t *testing.T) {
		gh := &MockGitHub{}
		gh.On("ListRepos", mock.Anything, mock.Anything).Return([]ghapi.Repo{pushed}, nil)
		gh.On("ListCommits", mock.Anything, "org/r", mock.Anything, mock.Anything).
			Return([]ghapi.Commit{apiCommit("c1", "alice", march(2, 1)), apiCommit("c2", "alice", march(20, 9))}, nil)
		key := repoCacheKey(pushed, apiWindow, cfg)
		store := &iocache.MockCacheStore{}
		store.On("Get", key).Return([]byte(nil), 0, int64(0), sql.ErrNoRows)
		store.On("Set", key, mock.Anything, currentCacheVersion, now.Unix()).Return(nil)

		s := NewAPIScanner(cfg, gh, store)
		s.now = func() time.Time { return now }
		res, err := s.Scan(context.Background(), apiWindow)
		require.NoError(t, err)
		assert.Len(t, res.Events, 2)
		store.AssertExpectations(t)
	})

	t.Run("open windows bypass the cache", func(t *testing.T) {
		gh := &MockGitHub{}
		gh.On("ListRepos", mock.Anything, mock.Anything).Return([]ghapi.Repo{repo}, nil)
		gh.On("ListCommits", mock.Anything, "org/r", mock.Anything, mock.Anything).
			Return([]ghapi.Commit{apiCommit("c1", "alice", march(2, 1))}, nil)
		store := &iocache.MockCacheStore{}

		s := NewAPIScanner(cfg, gh, store)
		s.now = func() time.Time { return now }
		_, err := s.Scan(context.Background(), schema.NewWindow(apiWindow.Start, time.Time{}))
		require.NoError(t, err)
		store.AssertNotCalled(t, "Get", mock.Anything)
		store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
