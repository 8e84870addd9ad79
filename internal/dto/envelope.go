package dto

import "github.com/shopspring/decimal"

func init() {
	// Money goes out as JSON numbers; clients send either numbers or numeric strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Envelope is the success body of every JSON endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Page is bound from ?page=&limit= on list endpoints.
type Page struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=200"`
}
