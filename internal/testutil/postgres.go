// Package testutil starts throwaway PostgreSQL containers for storage tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/survivors/internal/config"
	"github.com/cory-johannsen/survivors/internal/storage/postgres"
)

const (
	pgImage    = "postgres:16-alpine"
	pgUser     = "survivors"
	pgPassword = "survivors"
	pgDatabase = "survivors_test"
)

// MetaSchema mirrors migrations/000001_meta.up.sql.
const MetaSchema = `
	CREATE TABLE IF NOT EXISTS meta_entries (
		profile    VARCHAR(64)  NOT NULL,
		key        VARCHAR(128) NOT NULL,
		value      TEXT         NOT NULL,
		updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		PRIMARY KEY (profile, key)
	);
	CREATE TABLE IF NOT EXISTS runs (
		id          UUID        PRIMARY KEY,
		profile     VARCHAR(64) NOT NULL,
		character   VARCHAR(64) NOT NULL,
		stage       VARCHAR(64) NOT NULL,
		survived_ms BIGINT      NOT NULL,
		completed   BOOLEAN     NOT NULL DEFAULT FALSE,
		level       INTEGER     NOT NULL,
		kills       INTEGER     NOT NULL,
		currency    INTEGER     NOT NULL,
		ended_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_runs_profile_ended ON runs (profile, ended_at DESC);
`

// StartPostgres runs a disposable PostgreSQL container with MetaSchema
// applied and returns a Store connected to it. Everything is torn down by
// t.Cleanup. Tests are skipped under -short.
//
// Precondition: Docker is reachable when not in short mode.
func StartPostgres(t *testing.T) *postgres.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container tests are skipped in short mode")
	}
	ctx := context.Background()
	start := time.Now()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgUser,
				"POSTGRES_PASSWORD": pgPassword,
				"POSTGRES_DB":       pgDatabase,
			},
			// The server logs readiness twice: once for the init pass and
			// once for the real listener.
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting %s: %v", pgImage, err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}

	store, err := postgres.Open(ctx, config.DatabaseConfig{
		Host:            host,
		Port:            port.Int(),
		User:            pgUser,
		Password:        pgPassword,
		Name:            pgDatabase,
		SSLMode:         "disable",
		MaxConns:        4,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("connecting to %s: %v", pgImage, err)
	}
	t.Cleanup(store.Close)

	if _, err := store.DB().Exec(ctx, MetaSchema); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	t.Logf("postgres ready in %s", time.Since(start).Round(time.Millisecond))
	return store
}

// NewPool is StartPostgres for tests that only need the raw pool.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	return StartPostgres(t).DB()
}
