package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes classified as transient by spec §4.8: connection
// failures and server shutdown states, retried with backoff rather than
// surfaced immediately.
var transientCodes = map[string]bool{
	"08000": true, // connection_exception
	"08003": true, // connection_does_not_exist
	"08006": true, // connection_failure
	"57P01": true, // admin_shutdown
	"57P02": true, // crash_shutdown
	"57P03": true, // cannot_connect_now
}

// IsTransient reports whether err is a transient persistence error per
// spec §4.8: a connection-pool acquire timeout, a pool-closed error, or a
// PostgreSQL connection-class error code. Constraint violations, missing
// columns and syntax errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pgxpool.ErrClosedPool) {
		return true
	}
	var acquireErr interface{ Timeout() bool }
	if errors.As(err, &acquireErr) && acquireErr.Timeout() {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientCodes[pgErr.Code]
	}
	return false
}

// UserMessage translates a persistence error into the single human
// sentence spec §4.8 enumerates. Unrecognized errors get a generic
// message rather than leaking internal detail.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "already exists"
		case "23503":
			return "relationship violation"
		case "23502":
			return "missing required field"
		}
		if transientCodes[pgErr.Code] {
			return "database busy, retry"
		}
	}
	if errors.Is(err, pgxpool.ErrClosedPool) {
		return "database busy, retry"
	}
	return "database error"
}
