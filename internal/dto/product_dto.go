package dto

import "github.com/shopspring/decimal"

// CreateProductRequest registers a replenishment batch. Supplier, when set,
// is credited in the distributor ledger with quantity × costPrice.
type CreateProductRequest struct {
	Name         string          `json:"name"         validate:"required,min=1,max=200"`
	BatchNumber  *string         `json:"batchNumber"  validate:"omitempty,max=100"`
	ExpiryDate   *string         `json:"expiryDate"   validate:"omitempty,datetime=2006-01-02"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	MRP          decimal.Decimal `json:"mrp"`
	Discount     decimal.Decimal `json:"discount"`
	Supplier     *string         `json:"supplier"     validate:"omitempty,max=200"`
	ReorderLevel *int            `json:"reorderLevel" validate:"omitempty,min=0"`
}

type ProductResponse struct {
	ID           string          `json:"id"`
	StoreID      string          `json:"storeId"`
	Name         string          `json:"name"`
	BatchNo      *string         `json:"batchNo"`
	ExpiryDate   *string         `json:"expiryDate"`
	Quantity     int             `json:"quantity"`
	CostPrice    decimal.Decimal `json:"costPrice"`
	MRP          decimal.Decimal `json:"mrp"`
	Discount     decimal.Decimal `json:"discount"`
	Manufacturer *string         `json:"manufacturer"`
	ReorderLevel *int            `json:"reorderLevel"`
	CreatedAt    string          `json:"createdAt"`
}
