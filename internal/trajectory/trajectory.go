// Package trajectory reads a project's transcript as written by the target
// system. There is no write path; entries come back ordered by timestamp then id.
package trajectory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ashita-ai/gauntlet/internal/model"
)

const selectEntries = `SELECT id, project_id, sender, content, timestamp
	FROM trajectory_messages
	WHERE project_id = $1
	ORDER BY timestamp ASC, id ASC`

// PGReader reads trajectory_messages from PostgreSQL.
type PGReader struct {
	pool *pgxpool.Pool
}

// NewPGReader returns a reader over pool.
func NewPGReader(pool *pgxpool.Pool) *PGReader {
	return &PGReader{pool: pool}
}

// ReadTrajectory returns every entry for projectID. An unknown project yields
// an empty slice.
func (r *PGReader) ReadTrajectory(ctx context.Context, projectID string) ([]model.TrajectoryEntry, error) {
	rows, err := r.pool.Query(ctx, selectEntries, projectID)
	if err != nil {
		return nil, fmt.Errorf("trajectory: read %s: %w", projectID, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TrajectoryEntry, error) {
		var e model.TrajectoryEntry
		err := row.Scan(&e.ID, &e.ProjectID, &e.Sender, &e.Content, &e.Timestamp)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("trajectory: scan %s: %w", projectID, err)
	}
	return entries, nil
}

// SQLReader reads trajectory_messages from the embedded SQLite store, where
// timestamps are unix nanoseconds.
type SQLReader struct {
	db *sql.DB
}

// NewSQLReader returns a reader over db.
func NewSQLReader(db *sql.DB) *SQLReader {
	return &SQLReader{db: db}
}

// ReadTrajectory returns every entry for projectID.
func (r *SQLReader) ReadTrajectory(ctx context.Context, projectID string) ([]model.TrajectoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, sender, content, timestamp
		 FROM trajectory_messages
		 WHERE project_id = ?
		 ORDER BY timestamp ASC, id ASC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("trajectory: read %s: %w", projectID, err)
	}
	defer func() { _ = rows.Close() }()

	entries := []model.TrajectoryEntry{}
	for rows.Next() {
		var (
			e  model.TrajectoryEntry
			ts int64
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Sender, &e.Content, &ts); err != nil {
			return nil, fmt.Errorf("trajectory: scan %s: %w", projectID, err)
		}
		e.Timestamp = time.Unix(0, ts).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
