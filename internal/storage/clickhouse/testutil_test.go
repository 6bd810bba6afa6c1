package clickhouse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a ClickHouse container and returns a connection.
// Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := NewConn(ctx, dsn)
	require.NoError(t, err)

	runMigrations(t, conn)

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

// runMigrations applies the embedded ClickHouse migrations from the source tree.
func runMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	dir := findSQLDir()
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil || len(files) == 0 {
		t.Logf("Could not read migrations from %s, trying inline migrations", dir)
		runInlineMigrations(t, conn)
		return
	}

	for _, f := range files {
		content, err := os.ReadFile(f)
		require.NoError(t, err)
		err = conn.Exec(ctx, string(content))
		require.NoError(t, err, "failed to apply migration %s", f)
	}
}

// findSQLDir attempts to locate the clickhouse migrations directory
func findSQLDir() string {
	paths := []string{
		"../migrations/clickhouse",
		"internal/storage/migrations/clickhouse",
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return "../migrations/clickhouse"
}

// runInlineMigrations applies migrations directly without reading files
func runInlineMigrations(t *testing.T, conn *Conn) {
	t.Helper()
	ctx := context.Background()

	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS series_observations (
			series_name   LowCardinality(String),
			observed_at   Date32,
			value         Nullable(Float64),
			source        LowCardinality(String) DEFAULT '',
			ingested_at   DateTime DEFAULT now()
		) ENGINE = MergeTree()
		ORDER BY (series_name, observed_at)
	`)
	require.NoError(t, err)

	err = conn.Exec(ctx, `
		CREATE VIEW IF NOT EXISTS series_coverage AS
		SELECT
			series_name,
			min(observed_at) AS first_date,
			max(observed_at) AS last_date,
			count() AS observations,
			countIf(value IS NOT NULL) AS valid_observations
		FROM series_observations
		GROUP BY series_name
	`)
	require.NoError(t, err)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
