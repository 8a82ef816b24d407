package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/gauntlet/internal/model"
)

func insertResult(ctx context.Context, tx pgx.Tx, res model.Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO results (id, run_id, reviewer_id, result, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		res.ID, res.RunID, res.ReviewerID, res.Result, res.CreatedAt,
	); err != nil {
		return fmt.Errorf("storage: insert %s result: %w", res.Result.Type, err)
	}
	return nil
}

// InsertResult appends a result for a run.
func (db *DB) InsertResult(ctx context.Context, res model.Result) error {
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		return insertResult(ctx, tx, res)
	})
}

// ListResults returns a run's results in the order they were recorded.
func (db *DB) ListResults(ctx context.Context, runID uuid.UUID) ([]model.Result, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, reviewer_id, result, created_at
		 FROM results WHERE run_id = $1
		 ORDER BY created_at ASC, id ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list results: %w", err)
	}
	defer rows.Close()

	results := []model.Result{}
	for rows.Next() {
		var r model.Result
		if err := rows.Scan(&r.ID, &r.RunID, &r.ReviewerID, &r.Result, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
