package schema

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmapos/internal/apierror"
)

// AttributeSaleToCashier records the cashier on a freshly inserted sale through
// a targeted UPDATE. It is the only path that writes the legacy attribution
// column, and it refuses any cashier other than the authenticated caller.
func AttributeSaleToCashier(tx *gorm.DB, caps Capabilities, saleID, cashierID, callerID uuid.UUID) error {
	if cashierID != callerID {
		return apierror.AttributionConflict("Provided cashierId does not match authenticated user")
	}
	if caps.Attribution != AttributionFallback {
		return apierror.StructuralMismatch("Server schema does not support cashier association; cannot create sale")
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s = ? WHERE id = ?", SalesTable, quoteIdent(caps.AttributionColumn))
	res := tx.Exec(stmt, cashierID, saleID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("schema: attribution update touched %d rows for sale %s", res.RowsAffected, saleID)
	}
	return nil
}
