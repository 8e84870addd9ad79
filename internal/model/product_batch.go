package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductBatch is one receipt of stock for a named product.
// Quantity is only ever decremented by a committed sale.
type ProductBatch struct {
	Base
	StoreID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Name         string    `gorm:"index;not null"`
	BatchNo      *string
	ExpiryDate   *time.Time
	Quantity     int             `gorm:"not null;default:0;check:quantity >= 0"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MRP          decimal.Decimal `gorm:"column:mrp;type:decimal(12,2);not null"`
	Discount     decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Manufacturer *string
	ReorderLevel *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowReorderLevel reports whether the batch has dropped to its reorder threshold.
func (p *ProductBatch) BelowReorderLevel() bool {
	return p.ReorderLevel != nil && p.Quantity <= *p.ReorderLevel
}
