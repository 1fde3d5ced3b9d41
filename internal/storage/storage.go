// Package storage selects the meta persistence backend named by
// configuration.
package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/config"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/storage/postgres"
	"github.com/cory-johannsen/survivors/internal/storage/sqlite"
)

// Backend is an opened meta store with its run history.
type Backend struct {
	Driver string
	Store  meta.Store
	Runs   meta.RunLog
	close  func()
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open connects the backend chosen by cfg.Storage.Driver.
//
// Precondition: cfg has passed Validate.
// Postcondition: Returns a ready Backend or a non-nil error.
func Open(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Backend, error) {
	start := time.Now()
	b := &Backend{Driver: cfg.Storage.Driver}
	switch cfg.Storage.Driver {
	case "memory":
		m := meta.NewMemoryStore()
		b.Store, b.Runs = m, m
	case "sqlite":
		s, err := sqlite.Open(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		b.Store, b.Runs = s, s
		b.close = func() { _ = s.Close() }
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		b.Store, b.Runs = pg.Profiles, pg.Runs
		b.close = pg.Close
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	logger.Info("storage opened",
		zap.String("driver", b.Driver),
		zap.Duration("elapsed", time.Since(start)),
	)
	return b, nil
}
