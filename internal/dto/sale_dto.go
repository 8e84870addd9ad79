package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleItemRequest is one cart line. Either ProductID or Name must be set;
// quantity and price accept JSON numbers or numeric strings.
type SaleItemRequest struct {
	ProductID *string         `json:"productId" validate:"omitempty,uuid"`
	Name      *string         `json:"name"      validate:"omitempty,max=200"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type CustomerRequest struct {
	Name         *string `json:"name"         validate:"omitempty,max=200"`
	Mobile       *string `json:"mobile"       validate:"omitempty,max=20"`
	Address      *string `json:"address"      validate:"omitempty,max=500"`
	DoctorName   *string `json:"doctorName"   validate:"omitempty,max=200"`
	DoctorMobile *string `json:"doctorMobile" validate:"omitempty,max=20"`
}

type CreateSaleRequest struct {
	Items         []SaleItemRequest `json:"items"         validate:"required,min=1,dive"`
	PaymentMethod string            `json:"paymentMethod" validate:"omitempty,oneof=CASH ONLINE"`
	Customer      *CustomerRequest  `json:"customer"`
	// CashierID is sent by older clients; when present it must be the caller.
	CashierID *string `json:"cashierId" validate:"omitempty,uuid"`
}

// SaleFilter is bound from the query string of GET /api/sales.
type SaleFilter struct {
	Page
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ID        string          `json:"id"`
	ProductID *string         `json:"productId"`
	Name      *string         `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// CashierSummary is the public projection of the user a sale is attributed to.
type CashierSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SaleResponse struct {
	ID              string             `json:"id"`
	InvoiceNo       string             `json:"invoiceNo"`
	StoreID         string             `json:"storeId"`
	CashierID       *string            `json:"cashierId"`
	Cashier         *CashierSummary    `json:"cashier,omitempty"`
	TotalAmount     decimal.Decimal    `json:"totalAmount"`
	NetAmount       decimal.Decimal    `json:"netAmount"`
	PaymentMethod   string             `json:"paymentMethod"`
	CustomerName    *string            `json:"customerName"`
	CustomerMobile  *string            `json:"customerMobile"`
	CustomerAddress *string            `json:"customerAddress"`
	DoctorName      *string            `json:"doctorName"`
	DoctorMobile    *string            `json:"doctorMobile"`
	Items           []SaleItemResponse `json:"items"`
	CreatedAt       string             `json:"createdAt"`
}

type SaleListResponse struct {
	Sales []SaleResponse `json:"sales"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
