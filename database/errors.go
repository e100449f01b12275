package database

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// transientClasses are the PostgreSQL SQLSTATE prefixes of errors that may
// succeed when the statement is simply run again: connection exceptions,
// transaction rollbacks (serialization failures, deadlocks), insufficient
// resources and operator intervention (e.g. admin shutdown).
var transientClasses = []string{"08", "40", "53", "57P"}

// IsTransient reports whether err is a database error worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range transientClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
	}
	return false
}
