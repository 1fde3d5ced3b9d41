// Command migrate applies the PostgreSQL schema for the postgres storage
// driver.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/config"
	"github.com/cory-johannsen/survivors/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	source := flag.String("source", "file://migrations", "migration source URL")
	direction := flag.String("direction", "up", "migration direction: up or down")
	steps := flag.Int("steps", 0, "number of steps (0 = all)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := observability.NewLogger(cfg.Logging, "migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg.Database, *source, *direction, *steps, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
	}
	logger.Info("migration finished", zap.Duration("elapsed", time.Since(start)))
}

func run(db config.DatabaseConfig, source, direction string, steps int, logger *zap.Logger) error {
	m, err := migrate.New(source, db.DSN())
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch direction {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	default:
		return fmt.Errorf("invalid direction %q: must be 'up' or 'down'", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	version, dirty, _ := m.Version()
	logger.Info("schema version",
		zap.String("direction", direction),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
		zap.Bool("changed", err == nil),
	)
	return nil
}
