package dto

import "github.com/shopspring/decimal"

type StoreProfileRequest struct {
	Name      string  `json:"name"      validate:"required,min=2,max=200"`
	Address   string  `json:"address"   validate:"required,min=3"`
	Phone     string  `json:"phone"     validate:"required,min=6,max=20"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	LicenseNo string  `json:"licenseNo" validate:"required,min=2,max=100"`
	GSTNo     *string `json:"gstNo"     validate:"omitempty,max=50"`
}

type StoreResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Email     *string `json:"email"`
	LicenseNo string  `json:"licenseNo"`
	GSTNo     *string `json:"gstNo"`
	CreatedAt string  `json:"createdAt"`
}

// StoreWithSales is the admin overview row.
type StoreWithSales struct {
	StoreResponse
	SalesCount int64           `json:"salesCount"`
	TotalSales decimal.Decimal `json:"totalSales"`
}
