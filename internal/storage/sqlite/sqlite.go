// Package sqlite provides single-file meta persistence using go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/cory-johannsen/survivors/internal/game/meta"
)

const schema = `
	CREATE TABLE IF NOT EXISTS meta_entries (
		profile    TEXT    NOT NULL,
		key        TEXT    NOT NULL,
		value      TEXT    NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (profile, key)
	);
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT    PRIMARY KEY,
		profile     TEXT    NOT NULL,
		character   TEXT    NOT NULL,
		stage       TEXT    NOT NULL,
		survived_ms INTEGER NOT NULL,
		completed   INTEGER NOT NULL DEFAULT 0,
		level       INTEGER NOT NULL,
		kills       INTEGER NOT NULL,
		currency    INTEGER NOT NULL,
		ended_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_profile_ended ON runs (profile, ended_at_ms DESC);
`

// Store keeps meta state and run history in one SQLite file. It satisfies
// both meta.Store and meta.RunLog.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the
// schema exists.
//
// Precondition: path is a writable file path or ":memory:".
// Postcondition: Returns a ready Store or a non-nil error.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", path, err)
	}
	// One writer avoids SQLITE_BUSY between concurrent saves.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns every saved key/value pair of profile.
//
// Postcondition: an unknown profile yields an empty, non-nil map.
func (s *Store) Load(ctx context.Context, profile string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM meta_entries WHERE profile = ?`, profile)
	if err != nil {
		return nil, fmt.Errorf("querying meta entries: %w", err)
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scanning meta entry: %w", err)
		}
		kv[k] = v
	}
	return kv, rows.Err()
}

// Save replaces the profile's pairs with kv in one transaction.
func (s *Store) Save(ctx context.Context, profile string, kv map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM meta_entries WHERE profile = ?`, profile); err != nil {
		return fmt.Errorf("clearing meta entries: %w", err)
	}
	now := time.Now().UnixMilli()
	for k, v := range kv {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta_entries (profile, key, value, updated_at) VALUES (?, ?, ?, ?)`,
			profile, k, v, now,
		); err != nil {
			return fmt.Errorf("inserting meta entry %q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Append inserts rec. An empty ID is replaced by a new UUID and a zero
// EndedAt by the current time.
func (s *Store) Append(ctx context.Context, rec meta.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
			(id, profile, character, stage, survived_ms, completed, level, kills, currency, ended_at_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Profile, rec.Character, rec.Stage, rec.Survived.Milliseconds(),
		rec.Completed, rec.Level, rec.Kills, rec.Currency, rec.EndedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs of profile, newest first. A limit of zero
// or less returns all of them.
func (s *Store) Recent(ctx context.Context, profile string, limit int) ([]meta.RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile, character, stage, survived_ms, completed, level, kills, currency, ended_at_ms
		FROM runs WHERE profile = ? ORDER BY ended_at_ms DESC LIMIT ?`, profile, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []meta.RunRecord
	for rows.Next() {
		var rec meta.RunRecord
		var survivedMS, endedMS int64
		if err := rows.Scan(
			&rec.ID, &rec.Profile, &rec.Character, &rec.Stage, &survivedMS,
			&rec.Completed, &rec.Level, &rec.Kills, &rec.Currency, &endedMS,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Survived = time.Duration(survivedMS) * time.Millisecond
		rec.EndedAt = time.UnixMilli(endedMS)
		out = append(out, rec)
	}
	return out, rows.Err()
}
