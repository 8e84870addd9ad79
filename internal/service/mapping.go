package service

import (
	"pharmapos/internal/dto"
	"pharmapos/internal/model"
)

func saleToResponse(s *model.Sale, cashier *model.User) dto.SaleResponse {
	items := make([]dto.SaleItemResponse, 0, len(s.Items))
	for _, it := range s.Items {
		var pid *string
		if it.ProductID != nil {
			v := it.ProductID.String()
			pid = &v
		}
		items = append(items, dto.SaleItemResponse{
			ID:        it.ID.String(),
			ProductID: pid,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
		})
	}
	resp := dto.SaleResponse{
		ID:              s.ID.String(),
		InvoiceNo:       s.InvoiceNo,
		StoreID:         s.StoreID.String(),
		TotalAmount:     s.TotalAmount,
		NetAmount:       s.NetAmount,
		PaymentMethod:   s.PaymentMethod,
		CustomerName:    s.CustomerName,
		CustomerMobile:  s.CustomerMobile,
		CustomerAddress: s.CustomerAddress,
		DoctorName:      s.DoctorName,
		DoctorMobile:    s.DoctorMobile,
		Items:           items,
		CreatedAt:       formatTime(s.CreatedAt),
	}
	if s.CashierID != nil {
		v := s.CashierID.String()
		resp.CashierID = &v
	}
	if cashier != nil {
		resp.Cashier = &dto.CashierSummary{ID: cashier.ID.String(), Name: cashier.Name, Email: cashier.Email}
	}
	return resp
}

func productToResponse(p *model.ProductBatch) dto.ProductResponse {
	resp := dto.ProductResponse{
		ID:           p.ID.String(),
		StoreID:      p.StoreID.String(),
		Name:         p.Name,
		BatchNo:      p.BatchNo,
		Quantity:     p.Quantity,
		CostPrice:    p.CostPrice,
		MRP:          p.MRP,
		Discount:     p.Discount,
		Manufacturer: p.Manufacturer,
		ReorderLevel: p.ReorderLevel,
		CreatedAt:    formatTime(p.CreatedAt),
	}
	if p.ExpiryDate != nil {
		v := p.ExpiryDate.Format("2006-01-02")
		resp.ExpiryDate = &v
	}
	return resp
}

func distributorToResponse(d *model.Distributor) dto.DistributorResponse {
	return dto.DistributorResponse{
		ID:            d.ID.String(),
		StoreID:       d.StoreID.String(),
		Name:          d.Name,
		TotalPurchase: d.TotalPurchase,
		CreatedAt:     formatTime(d.CreatedAt),
	}
}

func storeToResponse(s *model.Store) dto.StoreResponse {
	return dto.StoreResponse{
		ID:        s.ID.String(),
		Name:      s.Name,
		Address:   s.Address,
		Phone:     s.Phone,
		Email:     s.Email,
		LicenseNo: s.LicenseNo,
		GSTNo:     s.GSTNo,
		CreatedAt: formatTime(s.CreatedAt),
	}
}

func userToResponse(u *model.User) dto.UserResponse {
	resp := dto.UserResponse{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: formatTime(u.CreatedAt),
	}
	if u.StoreID != nil {
		v := u.StoreID.String()
		resp.StoreID = &v
	}
	if u.Store != nil {
		resp.Store = &dto.StoreSummary{
			ID:      u.Store.ID.String(),
			Name:    u.Store.Name,
			Address: u.Store.Address,
			Phone:   u.Store.Phone,
		}
	}
	return resp
}
