// Package postgres stores meta progression and run history in PostgreSQL
// using pgx v5.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/config"
)

// Store owns the pool shared by the profile and run repositories.
type Store struct {
	pool     *pgxpool.Pool
	Profiles *ProfileRepository
	Runs     *RunRepository
}

// Open connects to the database described by cfg and verifies it answers.
//
// Precondition: cfg has passed config validation.
// Postcondition: Returns a Store ready for queries or a non-nil error; on
// error no connections are left open.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	s := &Store{
		pool:     pool,
		Profiles: NewProfileRepository(pool),
		Runs:     NewRunRepository(pool),
	}
	if err := s.Ping(ctx, 5*time.Second); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if logger != nil {
		logger.Debug("postgres connected",
			zap.String("host", cfg.Host),
			zap.String("database", cfg.Name),
			zap.Int32("max_conns", cfg.MaxConns),
		)
	}
	return s, nil
}

// Ping reports whether the database answers within timeout.
func (s *Store) Ping(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.pool.Ping(ctx)
}

// DB exposes the pool for schema setup in tests.
func (s *Store) DB() *pgxpool.Pool { return s.pool }

// Close releases every connection. The Store is unusable afterwards.
func (s *Store) Close() { s.pool.Close() }
