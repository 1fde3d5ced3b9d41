package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/survivors/internal/game/meta"
)

// RunRepository appends finished runs to the runs table. It satisfies
// meta.RunLog.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a RunRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

// Append inserts rec. An empty ID is replaced by a new UUID and a zero
// EndedAt by the current time.
func (r *RunRepository) Append(ctx context.Context, rec meta.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO runs
			(id, profile, character, stage, survived_ms, completed, level, kills, currency, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		rec.ID, rec.Profile, rec.Character, rec.Stage, rec.Survived.Milliseconds(),
		rec.Completed, rec.Level, rec.Kills, rec.Currency, rec.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs of profile, newest first. A limit of zero
// or less returns all of them.
func (r *RunRepository) Recent(ctx context.Context, profile string, limit int) ([]meta.RunRecord, error) {
	q := `
		SELECT id, profile, character, stage, survived_ms, completed, level, kills, currency, ended_at
		FROM runs WHERE profile = $1 ORDER BY ended_at DESC`
	args := []any{profile}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []meta.RunRecord
	for rows.Next() {
		var rec meta.RunRecord
		var survivedMS int64
		if err := rows.Scan(
			&rec.ID, &rec.Profile, &rec.Character, &rec.Stage, &survivedMS,
			&rec.Completed, &rec.Level, &rec.Kills, &rec.Currency, &rec.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		rec.Survived = time.Duration(survivedMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}
