package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileRepository keeps flattened meta state in the meta_entries table.
// It satisfies meta.Store.
type ProfileRepository struct {
	db *pgxpool.Pool
}

// NewProfileRepository creates a ProfileRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Load returns every saved key/value pair of profile.
//
// Postcondition: an unknown profile yields an empty, non-nil map.
func (r *ProfileRepository) Load(ctx context.Context, profile string) (map[string]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT key, value FROM meta_entries WHERE profile = $1`, profile)
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
//
// Postcondition: on error the previously saved pairs are untouched.
func (r *ProfileRepository) Save(ctx context.Context, profile string, kv map[string]string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM meta_entries WHERE profile = $1`, profile); err != nil {
		return fmt.Errorf("clearing meta entries: %w", err)
	}

	if len(kv) > 0 {
		batch := &pgx.Batch{}
		for k, v := range kv {
			batch.Queue(
				`INSERT INTO meta_entries (profile, key, value, updated_at) VALUES ($1, $2, $3, NOW())`,
				profile, k, v,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for range kv {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("inserting meta entry: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("close batch: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
