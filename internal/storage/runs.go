package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/gauntlet/internal/model"
)

const runColumns = `r.id, r.scenario_id, r.system_version, r.project_id, r.user_id, r.link,
	r.time_used, r.state, r.llm_temperature, r.created_at, r.updated_at,
	s.name, s.prompt, s.timeout_seconds, s.llm_model`

const runFrom = `FROM runs r JOIN scenarios s ON s.id = r.scenario_id`

func scanRun(row pgx.Row) (model.Run, error) {
	var r model.Run
	err := row.Scan(
		&r.ID, &r.ScenarioID, &r.SystemVersion, &r.ProjectID, &r.UserID, &r.Link,
		&r.TimeUsed, &r.State, &r.LLMTemperature, &r.CreatedAt, &r.UpdatedAt,
		&r.ScenarioName, &r.ScenarioPrompt, &r.TimeoutSeconds, &r.LLMModel,
	)
	return r, err
}

// CreateRun inserts a paused run together with its bootstrap result.
func (db *DB) CreateRun(ctx context.Context, run model.Run, initial model.Result) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO runs (id, scenario_id, system_version, project_id, user_id, link,
			                   time_used, state, llm_temperature, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
			run.ID, run.ScenarioID, run.SystemVersion, run.ProjectID, run.UserID, run.Link,
			run.TimeUsed, string(run.State), run.LLMTemperature, run.CreatedAt,
		); err != nil {
			return fmt.Errorf("storage: create run: %w", err)
		}
		if err := insertResult(ctx, tx, initial); err != nil {
			return err
		}
		return nil
	})
}

// GetRun retrieves a run by ID with its scenario budget joined in.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (model.Run, error) {
	run, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` `+runFrom+` WHERE r.id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, fmt.Errorf("storage: run %s: %w", id, ErrNotFound)
		}
		return model.Run{}, fmt.Errorf("storage: get run: %w", err)
	}
	return run, nil
}

// NextPausedRun returns the paused run that was updated least recently.
func (db *DB) NextPausedRun(ctx context.Context) (model.Run, error) {
	run, err := scanRun(db.pool.QueryRow(ctx,
		`SELECT `+runColumns+` `+runFrom+`
		 WHERE r.state = 'paused'
		 ORDER BY r.updated_at ASC, r.id ASC
		 LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Run{}, ErrNotFound
		}
		return model.Run{}, fmt.Errorf("storage: next paused run: %w", err)
	}
	return run, nil
}

// ClaimRun moves a run from paused to running. It returns false, without
// error, when another caller won the claim or the run was not paused.
func (db *DB) ClaimRun(ctx context.Context, id uuid.UUID) (bool, error) {
	var won bool
	if err := db.pool.QueryRow(ctx, `SELECT start_paused_run($1)`, id).Scan(&won); err != nil {
		return false, fmt.Errorf("storage: claim run: %w", err)
	}
	return won, nil
}

// AddTimeUsed adds seconds to the run's accumulated time and returns the
// state afterwards. The database function flips a running run that is now
// over budget to timed_out and records the timeout result atomically.
func (db *DB) AddTimeUsed(ctx context.Context, id uuid.UUID, seconds int) (model.RunState, error) {
	var state string
	err := WithRetry(ctx, 3, 20*time.Millisecond, func() error {
		return db.pool.QueryRow(ctx, `SELECT update_run_time_usage($1, $2)`, id, seconds).Scan(&state)
	})
	if err != nil {
		if isNoData(err) {
			return "", fmt.Errorf("storage: run %s: %w", id, ErrNotFound)
		}
		return "", fmt.Errorf("storage: add time used: %w", err)
	}
	return model.RunState(state), nil
}

// TransitionRun moves a run from one state to another if it is still in from,
// inserting result (when non-nil) in the same transaction. It returns false
// when the run was no longer in from; nothing is written in that case.
func (db *DB) TransitionRun(ctx context.Context, id uuid.UUID, from, to model.RunState, result *model.Result) (bool, error) {
	var moved bool
	err := WithRetry(ctx, 3, 20*time.Millisecond, func() error {
		moved = false
		return pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
			tag, err := tx.Exec(ctx,
				`UPDATE runs SET state = $1, updated_at = now() WHERE id = $2 AND state = $3`,
				string(to), id, string(from),
			)
			if err != nil {
				return fmt.Errorf("storage: transition run: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return nil
			}
			if result != nil {
				if err := insertResult(ctx, tx, *result); err != nil {
					return err
				}
			}
			moved = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	return moved, nil
}

// RunFilter narrows ListRuns.
type RunFilter struct {
	State  model.RunState
	UserID *uuid.UUID
	Limit  int
	Offset int
}

// ListRuns returns runs newest first plus the total matching count.
func (db *DB) ListRuns(ctx context.Context, f RunFilter) ([]model.Run, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var state *string
	if f.State != "" {
		s := string(f.State)
		state = &s
	}

	where := ` WHERE ($1::text IS NULL OR r.state = $1) AND ($2::uuid IS NULL OR r.user_id = $2)`

	var total int
	if err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) `+runFrom+where, state, f.UserID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("storage: count runs: %w", err)
	}

	rows, err := db.pool.Query(ctx,
		`SELECT `+runColumns+` `+runFrom+where+`
		 ORDER BY r.created_at DESC, r.id
		 LIMIT $3 OFFSET $4`,
		state, f.UserID, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: list runs: %w", err)
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("storage: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, total, rows.Err()
}

// CountRunsByState returns the number of runs in each state.
func (db *DB) CountRunsByState(ctx context.Context) (map[model.RunState]int, error) {
	rows, err := db.pool.Query(ctx, `SELECT state, COUNT(*) FROM runs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("storage: count runs by state: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.RunState]int, len(model.AllRunStates))
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("storage: scan run count: %w", err)
		}
		counts[model.RunState(state)] = n
	}
	return counts, rows.Err()
}
