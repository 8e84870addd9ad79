package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base carries the uuid primary key shared by every table. IDs are assigned
// in Go rather than by a DB default so the same models run on postgres and sqlite.
type Base struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
}

func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
