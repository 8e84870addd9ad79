package schema

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUndefinedColumn is SQLSTATE 42703.
const pgUndefinedColumn = "42703"

// IsMissingColumn reports whether err is the storage layer rejecting a column
// as structurally unknown. Constraint violations, type errors and connectivity
// failures are not. With TranslateError enabled the postgres driver reports
// 42703 as gorm.ErrInvalidField.
func IsMissingColumn(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrInvalidField) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedColumn
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such column") || strings.Contains(msg, "has no column named")
}
