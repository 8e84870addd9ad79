package model

import "time"

// Store is the tenant boundary: inventory, users and sales all hang off one.
type Store struct {
	Base
	Name      string `gorm:"not null"`
	Address   string `gorm:"not null"`
	Phone     string `gorm:"not null"`
	Email     *string
	LicenseNo string  `gorm:"uniqueIndex;not null"`
	GSTNo     *string `gorm:"column:gst_no"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
