package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment methods accepted at checkout.
const (
	PaymentCash   = "CASH"
	PaymentOnline = "ONLINE"
)

// Sale is the immutable record of one completed checkout.
// The customer/doctor columns were added over time and may be missing on
// older databases; see internal/schema for how writes and reads cope.
type Sale struct {
	Base
	InvoiceNo       string          `gorm:"uniqueIndex;not null"`
	StoreID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	CashierID       *uuid.UUID      `gorm:"type:uuid;index"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	NetAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod   string          `gorm:"type:varchar(10);not null;default:'CASH'"`
	CustomerName    *string
	CustomerMobile  *string
	CustomerAddress *string
	DoctorName      *string
	DoctorMobile    *string
	CreatedAt       time.Time

	Items []SaleItem `gorm:"foreignKey:SaleID"`
}

// SaleItem is one frozen line of a sale. ProductID is nil for manual items.
type SaleItem struct {
	Base
	SaleID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	LineNo    int        `gorm:"not null;default:0"`
	ProductID *uuid.UUID `gorm:"type:uuid;index"`
	Name      *string
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}
