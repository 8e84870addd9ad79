package model

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognised by the role gate.
const (
	RoleAdmin        = "ADMIN"
	RoleMedicalOwner = "MEDICAL_OWNER"
	RoleCashier      = "CASHIER"
)

// User stores system users with role-based access.
// Every user except ADMIN belongs to exactly one store.
type User struct {
	Base
	Name         string     `gorm:"not null"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Role         string     `gorm:"type:varchar(20);not null"`
	StoreID      *uuid.UUID `gorm:"type:uuid;index"`
	IsActive     bool       `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Store *Store `gorm:"foreignKey:StoreID"`
}
