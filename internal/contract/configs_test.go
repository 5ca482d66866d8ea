package contract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/hourglass/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAndValidate(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name       string
		input      *ConfigRawInput
		errorField string // empty means success
	}{
		{
			name:  "valid api config",
			input: &ConfigRawInput{Sources: "api", User: "alice", Start: "2024-01-01", End: "2024-01-31"},
		},
		{
			name:  "valid local config",
			input: &ConfigRawInput{Sources: "local", LocalPath: dir},
		},
		{
			name:       "unknown source",
			input:      &ConfigRawInput{Sources: "api,ftp", User: "alice"},
			errorField: "sources",
		},
		{
			name:       "no sources",
			input:      &ConfigRawInput{},
			errorField: "sources",
		},
		{
			name:       "start after end",
			input:      &ConfigRawInput{Sources: "api", User: "alice", Start: "2024-02-01", End: "2024-01-01"},
			errorField: "date range",
		},
		{
			name:       "bad start",
			input:      &ConfigRawInput{Sources: "api", User: "alice", Start: "last tuesday"},
			errorField: "start",
		},
		{
			name:       "api without identity",
			input:      &ConfigRawInput{Sources: "api"},
			errorField: "user",
		},
		{
			name:       "nonexistent local path",
			input:      &ConfigRawInput{Sources: "local", LocalPath: filepath.Join(dir, "missing")},
			errorField: "local-path",
		},
		{
			name:       "fs root is a file",
			input:      &ConfigRawInput{Sources: "filesystem", FSRoots: file},
			errorField: "fs-roots",
		},
		{
			name:       "snapshot without root or auto",
			input:      &ConfigRawInput{Sources: "snapshot"},
			errorField: "snapshot-root",
		},
		{
			name:       "bad granularity",
			input:      &ConfigRawInput{Sources: "snapshot", SnapshotAuto: true, SnapshotGranularity: "dir"},
			errorField: "snapshot-granularity",
		},
		{
			name:       "negative workers",
			input:      &ConfigRawInput{Sources: "local", LocalPath: dir, LocalWorkers: -2},
			errorField: "local-workers",
		},
		{
			name:       "inflight above ceiling",
			input:      &ConfigRawInput{Sources: "local", LocalPath: dir, AttributionInflight: 5000},
			errorField: "attribution-inflight",
		},
		{
			name:       "bad output",
			input:      &ConfigRawInput{Sources: "local", LocalPath: dir, Output: "xml"},
			errorField: "output",
		},
		{
			name:       "parquet needs output dir",
			input:      &ConfigRawInput{Sources: "local", LocalPath: dir, Output: "parquet"},
			errorField: "output-file",
		},
		{
			name:       "mysql missing connection",
			input:      &ConfigRawInput{Sources: "local", LocalPath: dir, RunsBackend: "mysql"},
			errorField: "runs-db-connect",
		},
		{
			name:       "export needs destination",
			input:      &ConfigRawInput{Sources: "local", LocalPath: dir, Export: "clickhouse"},
			errorField: "export-connect",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := ProcessAndValidateAt(cfg, tt.input, fixedNow)
			if tt.errorField == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.errorField, ce.Field)
			assert.True(t, IsConfigError(err))
		})
	}
}

func TestProcessAndValidateDefaults(t *testing.T) {
	cfg := &Config{}
	input := &ConfigRawInput{Sources: "api,LOCAL,api", User: "alice", LocalPath: t.TempDir(), FSExclude: "target, node_modules"}
	require.NoError(t, ProcessAndValidateAt(cfg, input, fixedNow))

	assert.Equal(t, []schema.ScanSource{schema.APIScan, schema.LocalScan}, cfg.Sources)
	assert.True(t, cfg.HasSource(schema.LocalScan))
	assert.False(t, cfg.HasSource(schema.SnapshotScan))

	assert.Equal(t, 1, cfg.Knobs.LocalWorkers)
	assert.Equal(t, 1, cfg.Knobs.AttributionInflight)
	assert.Equal(t, DefaultMaxDepth, cfg.Knobs.MaxDepth)
	assert.Equal(t, DefaultRootsLimit, cfg.Knobs.SnapshotRootsLimit)
	assert.Equal(t, DefaultPerRootLimit, cfg.Knobs.SnapshotPerRootLimit)

	assert.Equal(t, DefaultAPIURL, cfg.API.BaseURL)
	assert.Equal(t, DefaultHTTPTimeout, cfg.API.HTTPTimeout)
	assert.Equal(t, DefaultGitTimeout, cfg.Local.GitTimeout)
	assert.Equal(t, schema.FileGranularity, cfg.Snapshot.Granularity)
	assert.Equal(t, schema.TextOut, cfg.Output)
	assert.Equal(t, DefaultPrecision, cfg.Precision)
	assert.Equal(t, schema.NoneBackend, cfg.CacheBackend)
	assert.True(t, cfg.UseColors)

	assert.Contains(t, cfg.FS.Excludes, "target")
	count := 0
	for _, ex := range cfg.FS.Excludes {
		if ex == "node_modules" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicate excludes are collapsed")
	assert.True(t, cfg.Window.Start.IsZero())
}

func TestProcessTimeRangeRelative(t *testing.T) {
	cfg := &Config{}
	input := &ConfigRawInput{Sources: "api", User: "alice", Start: "7 days ago", Deadline: "90s"}
	require.NoError(t, ProcessAndValidateAt(cfg, input, fixedNow))

	assert.Equal(t, time.Date(2025, time.October, 27, 0, 0, 0, 0, time.UTC), cfg.Window.Start)
	assert.True(t, cfg.Window.End.IsZero())
	assert.Equal(t, 90*time.Second, cfg.Deadline)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{Sources: []schema.ScanSource{schema.APIScan}}
	cfg.API.ExcludeRepos = []string{"a"}
	clone := cfg.Clone()
	clone.Sources[0] = schema.LocalScan
	clone.API.ExcludeRepos[0] = "b"

	assert.Equal(t, schema.APIScan, cfg.Sources[0])
	assert.Equal(t, "a", cfg.API.ExcludeRepos[0])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/db", false},
		{schema.MySQLBackend, "user:pass@localhost/db", true},
		{schema.MySQLBackend, "", true},
		{schema.PostgreSQLBackend, "host=localhost dbname=runs", false},
		{schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
		if tt.wantErr {
			assert.Error(t, err, "%s %q", tt.backend, tt.conn)
		} else {
			assert.NoError(t, err, "%s %q", tt.backend, tt.conn)
		}
	}
}
