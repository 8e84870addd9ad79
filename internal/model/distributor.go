package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Distributor is the per-store purchase ledger for one supplier name.
// TotalPurchase only grows, on replenishment.
type Distributor struct {
	Base
	StoreID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_distributor_store_name"`
	Name          string          `gorm:"not null;uniqueIndex:idx_distributor_store_name"`
	TotalPurchase decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
