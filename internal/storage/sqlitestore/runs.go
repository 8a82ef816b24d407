package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

const runColumns = `r.id, r.scenario_id, r.system_version, r.project_id, r.user_id, r.link,
	r.time_used, r.state, r.llm_temperature, r.created_at, r.updated_at,
	s.name, s.prompt, s.timeout_seconds, s.llm_model`

const runFrom = `FROM runs r JOIN scenarios s ON s.id = r.scenario_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var (
		r                  model.Run
		created, updatedAt int64
	)
	err := row.Scan(
		&r.ID, &r.ScenarioID, &r.SystemVersion, &r.ProjectID, &r.UserID, &r.Link,
		&r.TimeUsed, &r.State, &r.LLMTemperature, &created, &updatedAt,
		&r.ScenarioName, &r.ScenarioPrompt, &r.TimeoutSeconds, &r.LLMModel,
	)
	r.CreatedAt = fromNano(created)
	r.UpdatedAt = fromNano(updatedAt)
	return r, err
}

// CreateRun inserts a paused run together with its bootstrap result.
func (s *Store) CreateRun(ctx context.Context, run model.Run, initial model.Result) error {
	now := s.nowNano()
	created := now
	if !run.CreatedAt.IsZero() {
		created = run.CreatedAt.UTC().UnixNano()
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, scenario_id, system_version, project_id, user_id, link,
			                   time_used, state, llm_temperature, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, run.ScenarioID, run.SystemVersion, run.ProjectID, run.UserID, run.Link,
			run.TimeUsed, string(run.State), run.LLMTemperature, created, created,
		); err != nil {
			return fmt.Errorf("sqlitestore: create run: %w", err)
		}
		return s.insertResult(ctx, tx, initial)
	})
}

// GetRun retrieves a run by ID with its scenario budget joined in.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (model.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` `+runFrom+` WHERE r.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Run{}, fmt.Errorf("sqlitestore: run %s: %w", id, storage.ErrNotFound)
		}
		return model.Run{}, fmt.Errorf("sqlitestore: get run: %w", err)
	}
	return run, nil
}

// NextPausedRun returns the paused run that was updated least recently.
func (s *Store) NextPausedRun(ctx context.Context) (model.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` `+runFrom+`
		 WHERE r.state = 'paused'
		 ORDER BY r.updated_at ASC, r.id ASC
		 LIMIT 1`,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Run{}, storage.ErrNotFound
		}
		return model.Run{}, fmt.Errorf("sqlitestore: next paused run: %w", err)
	}
	return run, nil
}

// ClaimRun moves a run from paused to running and reports whether this caller won.
func (s *Store) ClaimRun(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = 'running', updated_at = ? WHERE id = ? AND state = 'paused'`,
		s.nowNano(), id,
	)
	if err != nil {
		return false, fmt.Errorf("sqlitestore: claim run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlitestore: claim run: %w", err)
	}
	return n == 1, nil
}

// AddTimeUsed adds seconds to the run's accumulated time and returns the state
// afterwards, moving a running run that is now over budget to timed_out with a
// timeout result in the same transaction.
func (s *Store) AddTimeUsed(ctx context.Context, id uuid.UUID, seconds int) (model.RunState, error) {
	if seconds < 0 {
		seconds = 0
	}
	var state model.RunState
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var used, timeout int
		err := tx.QueryRowContext(ctx,
			`SELECT r.state, r.time_used, s.timeout_seconds `+runFrom+` WHERE r.id = ?`, id,
		).Scan(&state, &used, &timeout)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("sqlitestore: run %s: %w", id, storage.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("sqlitestore: read run time: %w", err)
		}

		used += seconds
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET time_used = ? WHERE id = ?`, used, id); err != nil {
			return fmt.Errorf("sqlitestore: add time used: %w", err)
		}
		if state != model.RunStateRunning || used <= timeout {
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE runs SET state = 'timed_out', updated_at = ? WHERE id = ?`, s.nowNano(), id,
		); err != nil {
			return fmt.Errorf("sqlitestore: time out run: %w", err)
		}
		res, err := model.NewResult(id, model.ResultTimeout, model.TimeoutData{TimeUsed: used, TimeoutSeconds: timeout})
		if err != nil {
			return err
		}
		if err := s.insertResult(ctx, tx, res); err != nil {
			return err
		}
		state = model.RunStateTimedOut
		return nil
	})
	if err != nil {
		return "", err
	}
	return state, nil
}

// TransitionRun moves a run from one state to another if it is still in from,
// inserting result (when non-nil) in the same transaction.
func (s *Store) TransitionRun(ctx context.Context, id uuid.UUID, from, to model.RunState, result *model.Result) (bool, error) {
	var moved bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE runs SET state = ?, updated_at = ? WHERE id = ? AND state = ?`,
			string(to), s.nowNano(), id, string(from),
		)
		if err != nil {
			return fmt.Errorf("sqlitestore: transition run: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlitestore: transition run: %w", err)
		}
		if n == 0 {
			return nil
		}
		if result != nil {
			if err := s.insertResult(ctx, tx, *result); err != nil {
				return err
			}
		}
		moved = true
		return nil
	})
	return moved, err
}

// ListRuns returns runs newest first plus the total matching count.
func (s *Store) ListRuns(ctx context.Context, f storage.RunFilter) ([]model.Run, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	var state, user any
	if f.State != "" {
		state = string(f.State)
	}
	if f.UserID != nil {
		user = f.UserID.String()
	}
	where := ` WHERE (?1 IS NULL OR r.state = ?1) AND (?2 IS NULL OR r.user_id = ?2)`

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) `+runFrom+where, state, user).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlitestore: count runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` `+runFrom+where+`
		 ORDER BY r.created_at DESC, r.id
		 LIMIT ?3 OFFSET ?4`,
		state, user, f.Limit, f.Offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlitestore: list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlitestore: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, total, rows.Err()
}

// CountRunsByState returns the number of runs in each state.
func (s *Store) CountRunsByState(ctx context.Context) (map[model.RunState]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM runs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: count runs by state: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[model.RunState]int, len(model.AllRunStates))
	for rows.Next() {
		var (
			state model.RunState
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan run count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

func (s *Store) insertResult(ctx context.Context, tx *sql.Tx, res model.Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	created := s.nowNano()
	if !res.CreatedAt.IsZero() {
		created = res.CreatedAt.UTC().UnixNano()
	}
	payload, err := json.Marshal(res.Result)
	if err != nil {
		return fmt.Errorf("sqlitestore: encode result: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO results (id, run_id, reviewer_id, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		res.ID, res.RunID, res.ReviewerID, string(payload), created,
	); err != nil {
		return fmt.Errorf("sqlitestore: insert %s result: %w", res.Result.Type, err)
	}
	return nil
}

// InsertResult appends a result for a run.
func (s *Store) InsertResult(ctx context.Context, res model.Result) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insertResult(ctx, tx, res)
	})
}

// ListResults returns a run's results in the order they were recorded.
func (s *Store) ListResults(ctx context.Context, runID uuid.UUID) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, reviewer_id, result, created_at
		 FROM results WHERE run_id = ?
		 ORDER BY created_at ASC, rowid ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlitestore: list results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []model.Result{}
	for rows.Next() {
		var (
			r       model.Result
			payload string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.RunID, &r.ReviewerID, &payload, &created); err != nil {
			return nil, fmt.Errorf("sqlitestore: scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &r.Result); err != nil {
			return nil, fmt.Errorf("sqlitestore: decode result %s: %w", r.ID, err)
		}
		r.CreatedAt = fromNano(created)
		results = append(results, r)
	}
	return results, rows.Err()
}
