package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// IsUniqueViolation reports whether err is a unique-key conflict from either
// backend. mysql signals it with error 1062, modernc sqlite only through the
// error text.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed: UNIQUE")
}
