package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Name     string  `json:"name"     validate:"required,min=2,max=100"`
	Email    string  `json:"email"    validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Role     string  `json:"role"     validate:"required,oneof=ADMIN MEDICAL_OWNER CASHIER"`
	StoreID  *string `json:"storeId"  validate:"omitempty,uuid"`
}

type UpdateUserRequest struct {
	Name     string  `json:"name"     validate:"omitempty,min=2,max=100"`
	Email    string  `json:"email"    validate:"omitempty,email"`
	Role     string  `json:"role"     validate:"omitempty,oneof=ADMIN MEDICAL_OWNER CASHIER"`
	IsActive *bool   `json:"isActive"`
	StoreID  *string `json:"storeId"  validate:"omitempty,uuid"`
}

// UserFilter is bound from GET /api/users.
type UserFilter struct {
	Role     string `form:"role"     validate:"omitempty,oneof=ADMIN MEDICAL_OWNER CASHIER"`
	IsActive *bool  `form:"isActive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type StoreSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type UserResponse struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Role      string        `json:"role"`
	IsActive  bool          `json:"isActive"`
	StoreID   *string       `json:"storeId"`
	Store     *StoreSummary `json:"store,omitempty"`
	CreatedAt string        `json:"createdAt"`
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
