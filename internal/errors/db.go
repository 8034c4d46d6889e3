package errors

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// MapDBError maps database errors raised by the credential store to AppError instances.
// It handles the patterns the store can actually hit:
// - Context timeouts/cancellations → Timeout/Canceled
// - pgx.ErrNoRows → NotFound
// - Connection exceptions and shutdowns → NetworkUnavailable
// - Everything else PostgreSQL reports → ServerError
//
// If the error is not a recognized database error, it returns the original error.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{
			Code:    ErrCodeTimeout,
			Message: "Request timed out. Please try again.",
			Cause:   err,
		}
	}
	if errors.Is(err, context.Canceled) {
		return &AppError{
			Code:    ErrCodeCanceled,
			Message: "Request was canceled.",
			Cause:   err,
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &AppError{
			Code:    ErrCodeNotFound,
			Message: "Resource not found",
			Cause:   err,
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return NetworkUnavailable(err)
	}

	return err
}

// mapPgError maps PostgreSQL-specific errors to AppError instances.
func mapPgError(pgErr *pgconn.PgError) error {
	switch {
	case pgerrcode.IsConnectionException(pgErr.Code),
		pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow:
		return NetworkUnavailable(pgErr)
	case pgErr.Code == pgerrcode.InsufficientPrivilege:
		return &AppError{
			Code:    ErrCodePermissionDenied,
			Message: "The credential store rejected the operation.",
			Cause:   pgErr,
		}
	default:
		return &AppError{
			Code:    ErrCodeServerError,
			Message: "A database error occurred. Please try again.",
			Cause:   pgErr,
		}
	}
}

// IsUndefinedTable reports whether err is PostgreSQL's undefined_table error.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable
}
