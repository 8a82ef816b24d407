package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/gauntlet/internal/model"
)

const scenarioColumns = `id, name, description, prompt, llm_model, llm_temperature, timeout_seconds, created_at`

func scanScenario(row pgx.Row) (model.Scenario, error) {
	var s model.Scenario
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Prompt, &s.LLMModel,
		&s.LLMTemperature, &s.TimeoutSeconds, &s.CreatedAt)
	return s, err
}

// UpsertScenario inserts a scenario or updates the one with the same name.
// The stored row (with its ID) is returned.
func (db *DB) UpsertScenario(ctx context.Context, s model.Scenario) (model.Scenario, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	out, err := scanScenario(db.pool.QueryRow(ctx,
		`INSERT INTO scenarios (id, name, description, prompt, llm_model, llm_temperature, timeout_seconds)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (name) DO UPDATE SET
		     description = EXCLUDED.description,
		     prompt = EXCLUDED.prompt,
		     llm_model = EXCLUDED.llm_model,
		     llm_temperature = EXCLUDED.llm_temperature,
		     timeout_seconds = EXCLUDED.timeout_seconds
		 RETURNING `+scenarioColumns,
		s.ID, s.Name, s.Description, s.Prompt, s.LLMModel, s.LLMTemperature, s.TimeoutSeconds,
	))
	if err != nil {
		return model.Scenario{}, fmt.Errorf("storage: upsert scenario %q: %w", s.Name, err)
	}
	return out, nil
}

// GetScenario retrieves a scenario by ID.
func (db *DB) GetScenario(ctx context.Context, id uuid.UUID) (model.Scenario, error) {
	s, err := scanScenario(db.pool.QueryRow(ctx,
		`SELECT `+scenarioColumns+` FROM scenarios WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Scenario{}, fmt.Errorf("storage: scenario %s: %w", id, ErrNotFound)
		}
		return model.Scenario{}, fmt.Errorf("storage: get scenario: %w", err)
	}
	return s, nil
}

// ListScenarios returns all scenarios ordered by name.
func (db *DB) ListScenarios(ctx context.Context) ([]model.Scenario, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+scenarioColumns+` FROM scenarios ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("storage: list scenarios: %w", err)
	}
	defer rows.Close()

	out := []model.Scenario{}
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan scenario: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
