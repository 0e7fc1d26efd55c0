package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert hits an existing key.
var ErrDuplicate = errors.New("duplicate record")

// sqlState extracts the SQLSTATE code from either driver.
func sqlState(err error) string {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// IsUniqueViolation reports a 23505 from either driver.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == "23505"
}

// IsUnavailable reports transient store failures that a caller may retry.
// Cancelled contexts count too: the caller went away, the store did not fail.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	code := sqlState(err)
	switch {
	case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "57P"), code == "40001", code == "40P01", code == "53300":
		return true
	case code != "":
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
