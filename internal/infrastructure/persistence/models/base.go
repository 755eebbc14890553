// Package models holds the gorm row types and their domain conversions.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// EntityRow holds the identity, timestamp and version columns of every
// entity table
type EntityRow struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// Entity converts the columns back to the domain value
func (r EntityRow) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version}
}

func entityRow(e shared.BaseEntity) EntityRow {
	return EntityRow{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt, Version: e.Version}
}

// BeforeCreate assigns a time-ordered ID and the first version to rows
// inserted without them, such as seed data built directly from models
func (r *EntityRow) BeforeCreate(*gorm.DB) error {
	if r.Version == 0 {
		r.Version = 1
	}
	if r.ID != uuid.Nil {
		return nil
	}
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// All returns every model, in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&StaffUserModel{},
		&OrderModel{},
		&ReturnRequestModel{},
		&RefundRecordModel{},
		&SettlementModel{},
		&AuditLogModel{},
		&IdempotencyRecordModel{},
	}
}
