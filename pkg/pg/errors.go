package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmptyConnectionString = errors.New("empty postgres connection string, set DATABASE_URL")
	ErrParseConfig           = errors.New("failed to parse postgres connection string")
	ErrConnect               = errors.New("failed to connect to postgres")
	ErrHealthcheckFailed     = errors.New("postgres healthcheck failed")
	ErrMigrationsFailed      = errors.New("failed to apply migrations")
)

// IsNotFoundError reports whether err is the pgx empty-result error. Stores
// use it to translate row absence into their domain not-found errors.
func IsNotFoundError(err error) bool {
	return err != nil && errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateKeyError reports a unique constraint violation (SQLSTATE 23505).
func IsDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return err != nil && errors.As(err, &pgErr) && pgErr.Code == "23505"
}
