package storage

import (
	"context"
	"fmt"

	"github.com/ashita-ai/gauntlet/internal/model"
)

// BenchmarkSettings reads the persisted scheduler switch.
func (db *DB) BenchmarkSettings(ctx context.Context) (model.BenchmarkSettings, error) {
	var s model.BenchmarkSettings
	if err := db.pool.QueryRow(ctx,
		`SELECT benchmark_active, updated_at, updated_by FROM orchestrator_settings WHERE id`,
	).Scan(&s.Active, &s.UpdatedAt, &s.UpdatedBy); err != nil {
		return model.BenchmarkSettings{}, fmt.Errorf("storage: read benchmark settings: %w", err)
	}
	return s, nil
}

// SetBenchmarkActive turns the scheduler switch on or off. by identifies the
// caller (a user id or a scheduler instance id).
func (db *DB) SetBenchmarkActive(ctx context.Context, active bool, by string) (model.BenchmarkSettings, error) {
	var s model.BenchmarkSettings
	if err := db.pool.QueryRow(ctx,
		`INSERT INTO orchestrator_settings (id, benchmark_active, updated_at, updated_by)
		 VALUES (TRUE, $1, now(), $2)
		 ON CONFLICT (id) DO UPDATE SET
		     benchmark_active = EXCLUDED.benchmark_active,
		     updated_at = EXCLUDED.updated_at,
		     updated_by = EXCLUDED.updated_by
		 RETURNING benchmark_active, updated_at, updated_by`,
		active, by,
	).Scan(&s.Active, &s.UpdatedAt, &s.UpdatedBy); err != nil {
		return model.BenchmarkSettings{}, fmt.Errorf("storage: set benchmark active: %w", err)
	}
	return s, nil
}
