package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

const scenarioColumns = `id, name, description, prompt, llm_model, llm_temperature, timeout_seconds, created_at`

func scanScenario(row rowScanner) (model.Scenario, error) {
	var (
		sc      model.Scenario
		created int64
	)
	err := row.Scan(&sc.ID, &sc.Name, &sc.Description, &sc.Prompt, &sc.LLMModel,
		&sc.LLMTemperature, &sc.TimeoutSeconds, &created)
	sc.CreatedAt = fromNano(created)
	return sc, err
}

// UpsertScenario inserts a scenario or updates the one with the same name.
func (s *Store) UpsertScenario(ctx context.Context, sc model.Scenario) (model.Scenario, error) {
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	out, err := scanScenario(s.db.QueryRowContext(ctx,
		`INSERT INTO scenarios (id, name, description, prompt, llm_model, llm_temperature, timeout_seconds, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET
		     description = excluded.description,
		     prompt = excluded.prompt,
		     llm_model = excluded.llm_model,
		     llm_temperature = excluded.llm_temperature,
		     timeout_seconds = excluded.timeout_seconds
		 RETURNING `+scenarioColumns,
		sc.ID, sc.Name, sc.Description, sc.Prompt, sc.LLMModel, sc.LLMTemperature, sc.TimeoutSeconds, s.nowNano(),
	))
	if err != nil {
		return model.Scenario{}, fmt.Errorf("sqlitestore: upsert scenario %q: %w", sc.Name, err)
	}
	return out, nil
}

// GetScenario retrieves a scenario by ID.
func (s *Store) GetScenario(ctx context.Context, id uuid.UUID) (model.Scenario, error) {
	sc, err := scanScenario(s.db.QueryRowContext(ctx,
		`SELECT `+scenarioColumns+` FROM scenarios WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Scenario{}, fmt.Errorf("sqlitestore: scenario %s: %w", id, storage.ErrNotFound)
		}
		return model.Scenario{}, fmt.Errorf("sqlitestore: get scenario: %w", err)
	}
	return sc, nil
}

// ListScenarios returns all scenarios ordered by name.
func (s *Store) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scenarioColumns+` FROM scenarios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list scenarios: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Scenario{}
	for rows.Next() {
		sc, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlitestore: scan scenario: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// BenchmarkSettings reads the persisted scheduler switch.
func (s *Store) BenchmarkSettings(ctx context.Context) (model.BenchmarkSettings, error) {
	var (
		out     model.BenchmarkSettings
		updated int64
	)
	if err := s.db.QueryRowContext(ctx,
		`SELECT benchmark_active, updated_at, updated_by FROM orchestrator_settings WHERE id = 1`,
	).Scan(&out.Active, &updated, &out.UpdatedBy); err != nil {
		return model.BenchmarkSettings{}, fmt.Errorf("sqlitestore: read benchmark settings: %w", err)
	}
	out.UpdatedAt = fromNano(updated)
	return out, nil
}

// SetBenchmarkActive turns the scheduler switch on or off.
func (s *Store) SetBenchmarkActive(ctx context.Context, active bool, by string) (model.BenchmarkSettings, error) {
	now := s.nowNano()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO orchestrator_settings (id, benchmark_active, updated_at, updated_by)
		 VALUES (1, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     benchmark_active = excluded.benchmark_active,
		     updated_at = excluded.updated_at,
		     updated_by = excluded.updated_by`,
		active, now, by,
	); err != nil {
		return model.BenchmarkSettings{}, fmt.Errorf("sqlitestore: set benchmark active: %w", err)
	}
	return model.BenchmarkSettings{Active: active, UpdatedAt: fromNano(now), UpdatedBy: by}, nil
}
