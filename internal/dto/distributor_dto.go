package dto

import "github.com/shopspring/decimal"

type CreateDistributorRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

type DistributorResponse struct {
	ID            string          `json:"id"`
	StoreID       string          `json:"storeId"`
	Name          string          `json:"name"`
	TotalPurchase decimal.Decimal `json:"totalPurchase"`
	CreatedAt     string          `json:"createdAt"`
}
