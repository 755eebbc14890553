package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/idempotency"
)

// IdempotencyRecordModel is one replay-protection entry. The composite
// primary key makes INSERT ... ON CONFLICT DO NOTHING the acquisition step.
type IdempotencyRecordModel struct {
	ActorID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Endpoint       string     `gorm:"type:varchar(100);primaryKey"`
	IdemKey        string     `gorm:"column:idem_key;type:varchar(128);primaryKey"`
	RequestHash    string     `gorm:"type:char(64);not null"`
	Status         string     `gorm:"type:varchar(20);not null;index"`
	Attempt        int        `gorm:"not null;default:1"`
	ResponseStatus int        `gorm:"not null;default:0"`
	ResponseBody   *string    `gorm:"type:text"`
	TargetType     string     `gorm:"type:varchar(40);not null;default:''"`
	TargetID       string     `gorm:"type:varchar(64);not null;default:''"`
	CreatedAt      time.Time  `gorm:"not null"`
	UpdatedAt      time.Time  `gorm:"not null"`
	CompletedAt    *time.Time `gorm:"column:completed_at"`
	ExpiresAt      *time.Time `gorm:"column:expires_at;index"`
}

// TableName returns the table name for GORM
func (IdempotencyRecordModel) TableName() string {
	return "idempotency_records"
}

// ToDomain converts the model to a domain Record. The stored body is the
// JSON-encoded StoredResponse.
func (m *IdempotencyRecordModel) ToDomain() (*idempotency.Record, error) {
	rec := &idempotency.Record{
		Scope: idempotency.Scope{
			ActorID:  m.ActorID,
			Endpoint: m.Endpoint,
			Key:      m.IdemKey,
		},
		RequestHash: m.RequestHash,
		Status:      idempotency.Status(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		CompletedAt: m.CompletedAt,
		ExpiresAt:   m.ExpiresAt,
	}
	if m.ResponseBody != nil {
		resp, err := idempotency.DecodeResponse([]byte(*m.ResponseBody))
		if err != nil {
			return nil, err
		}
		rec.Response = resp
	}
	return rec, nil
}
