package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/hourglass/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &CacheStoreManager{}
}

func TestInitCaching(t *testing.T) {
	t.Run("sqlite stores", func(t *testing.T) {
		resetGlobals()
		dir := t.TempDir()
		cachePath, runsPath := filepath.Join(dir, "cache.db"), filepath.Join(dir, "runs.db")

		require.NoError(t, InitCaching(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, runsPath))
		assert.NotNil(t, Manager.GetScanStore())
		assert.NotNil(t, Manager.GetRunStore())

		// Later calls are no-ops even with bad arguments
		assert.NoError(t, InitCaching("oracle", "", "oracle", ""))

		CloseCaching()
		CloseCaching()

		for _, p := range []string{cachePath, runsPath} {
			_, err := os.Stat(p)
			assert.NoError(t, err, p)
		}
	})

	t.Run("disabled stores", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitCaching("", "", "", ""))
		assert.Nil(t, Manager.GetScanStore())
		assert.Nil(t, Manager.GetRunStore())
		CloseCaching()
	})

	t.Run("none backend", func(t *testing.T) {
		resetGlobals()
		require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))
		store := Manager.GetScanStore()
		require.NotNil(t, store)
		assert.NoError(t, store.Set("k", nil, 1, 1))
		CloseCaching()
	})

	t.Run("bad run store closes the scan store", func(t *testing.T) {
		resetGlobals()
		err := InitCaching(schema.NoneBackend, "", "oracle", "")
		assert.ErrorContains(t, err, "failed to initialize run store")
		assert.Nil(t, Manager.GetScanStore())
	})

	t.Run("bad scan store", func(t *testing.T) {
		resetGlobals()
		err := InitCaching("oracle", "", schema.NoneBackend, "")
		assert.ErrorContains(t, err, "failed to initialize scan caching")
	})
}

func TestCacheStoreManagerConcurrency(t *testing.T) {
	resetGlobals()
	require.NoError(t, InitCaching(schema.NoneBackend, "", schema.NoneBackend, ""))
	defer CloseCaching()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotNil(t, Manager.GetScanStore())
			assert.NotNil(t, Manager.GetRunStore())
		}()
	}
	wg.Wait()
}

func TestClearCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewCacheStore(scanTable, schema.SQLiteBackend, path)
	require.NoError(t, err)
	require.NoError(t, store.Set("k", []byte("v"), 1, 1))
	require.NoError(t, store.Close())

	require.NoError(t, ClearCache(schema.SQLiteBackend, path, ""))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, ClearCache(schema.SQLiteBackend, path, ""), "missing file is fine")
	assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	assert.Error(t, ClearCache("oracle", "", ""))
}

func TestClearRuns(t *testing.T) {
	store, path := newSQLiteRunStore(t)
	require.NoError(t, store.BeginRun("r", time.Now(), nil))
	require.NoError(t, store.Close())

	require.NoError(t, ClearRuns(schema.SQLiteBackend, path, ""))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	fresh, err := NewRunStore(schema.SQLiteBackend, path)
	require.NoError(t, err)
	defer func() { _ = fresh.Close() }()
	runs, err := fresh.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
