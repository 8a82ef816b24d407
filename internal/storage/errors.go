package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested entity does not exist.
// The SQLite store returns the same sentinel.
var ErrNotFound = errors.New("storage: not found")

// isNoData reports whether err was raised with SQLSTATE no_data_found.
func isNoData(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "P0002"
}
