package dbx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
	numericOutOfRange   = "22003"
)

func pgCode(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil, false
	}
	return pgErr, true
}

// IsUniqueViolation reports whether err carries a PostgreSQL unique
// constraint violation.
func IsUniqueViolation(err error) bool {
	pgErr, ok := pgCode(err)
	return ok && pgErr.Code == uniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation on
// constraint. An empty constraint matches any foreign key.
func IsForeignKeyViolation(err error, constraint string) bool {
	pgErr, ok := pgCode(err)
	if !ok || pgErr.Code != foreignKeyViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsNumericOutOfRange reports whether a value did not fit its numeric column.
func IsNumericOutOfRange(err error) bool {
	pgErr, ok := pgCode(err)
	return ok && pgErr.Code == numericOutOfRange
}
