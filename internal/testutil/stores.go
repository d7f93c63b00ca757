// Package testutil provides stores and fixtures for tests. The SQLite store
// is hermetic; the postgres and mongo stores start containers and are
// skipped in short mode.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository/mongo"
	"github.com/vncsmyrnk/pollr/internal/adapters/repository/sqldb"
)

// SQLiteStore returns a migrated in-memory database private to the test.
func SQLiteStore(t *testing.T) *sqldb.Store {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	store, err := sqldb.Open(ctx, sqldb.SQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Migrate(ctx)
	require.NoError(t, err)
	return store
}

// PostgresStore starts a postgres container and returns a migrated store.
func PostgresStore(t *testing.T) *sqldb.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := sqldb.Open(ctx, sqldb.Postgres, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, err = store.Migrate(ctx)
	require.NoError(t, err)
	return store
}

// MongoStore starts a single-node replica set, which ballot transactions
// need, and returns a store with its indexes in place.
func MongoStore(t *testing.T) *mongo.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	require.NoError(t, err, "failed to start mongo container")
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate mongo container: %v", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)
	if !strings.Contains(uri, "directConnection") {
		sep := "?"
		if strings.Contains(uri, "?") {
			sep = "&"
		}
		uri += sep + "directConnection=true"
	}

	store, err := mongo.Connect(ctx, uri, "pollr_test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	require.NoError(t, store.EnsureIndexes(ctx))
	return store
}
