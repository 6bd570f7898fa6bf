package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"ladder-lab/internal/observability"
	"ladder-lab/internal/storage/migrations"
	"ladder-lab/internal/storage/postgres"
)

// startPostgres runs a throwaway server for the test and returns its DSN.
func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("ladder"),
		tcpostgres.WithUsername("ladder"),
		tcpostgres.WithPassword("ladder"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "connection string")
	return dsn
}

// setupTestDB returns a migrated pool on a fresh server. m may be nil.
func setupTestDB(t *testing.T, m *observability.Metrics) *postgres.Pool {
	t.Helper()

	dsn := startPostgres(t)
	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{
		MaxConns:       4,
		ConnectTimeout: 10 * time.Second,
		Metrics:        m,
	})
	require.NoError(t, err, "open pool")
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.RunPostgresMigrations(ctx, pool), "apply migrations")
	return pool
}
