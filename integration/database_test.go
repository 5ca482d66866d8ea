//go:build database

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// reportArgs scan the project tree itself, which needs neither network nor git.
var reportArgs = []string{"report", "--sources", "filesystem", "--fs-roots", ".", "--fs-force", "--default-user", "ci", "--start", "30 days ago"}

// exerciseStores runs the store commands against one backend.
func exerciseStores(t *testing.T, env map[string]string) {
	t.Helper()

	_, err := runHourglass(t, env, "cache", "clear")
	require.NoError(t, err)
	_, err = runHourglass(t, env, "runs", "clear")
	require.NoError(t, err)
	_, err = runHourglass(t, env, "runs", "migrate")
	require.NoError(t, err)

	_, err = runHourglass(t, env, reportArgs...)
	require.NoError(t, err)

	out, err := runHourglass(t, env, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Connected: true")

	out, err = runHourglass(t, env, "runs", "status")
	require.NoError(t, err)
	assert.Contains(t, string(out), "Total Runs: 1")

	exportBase := filepath.Join(t.TempDir(), "history")
	env["HOURGLASS_OUTPUT_FILE"] = exportBase
	_, err = runHourglass(t, env, "runs", "export")
	require.NoError(t, err)
	assert.FileExists(t, exportBase+".runs.parquet")
	assert.FileExists(t, exportBase+".daily_records.parquet")
}

// TestHourglassWithMySQL tests the hourglass CLI with a MySQL backend.
func TestHourglassWithMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "hourglass",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/hourglass?parseTime=true", host, port.Port())
	exerciseStores(t, map[string]string{
		"HOURGLASS_CACHE_BACKEND":    "mysql",
		"HOURGLASS_CACHE_DB_CONNECT": connStr,
		"HOURGLASS_RUNS_BACKEND":     "mysql",
		"HOURGLASS_RUNS_DB_CONNECT":  connStr,
	})
}

// TestHourglassWithPostgres tests the hourglass CLI with a PostgreSQL backend.
func TestHourglassWithPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	exerciseStores(t, map[string]string{
		"HOURGLASS_CACHE_BACKEND":    "postgresql",
		"HOURGLASS_CACHE_DB_CONNECT": connStr,
		"HOURGLASS_RUNS_BACKEND":     "postgresql",
		"HOURGLASS_RUNS_DB_CONNECT":  connStr,
	})
}
