package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/identity"
	"go.uber.org/zap"
)

// AuditLogModel is the persistence model for audit rows. Rows are only ever
// inserted.
type AuditLogModel struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OccurredAt     time.Time  `gorm:"not null;index:idx_audit_logs_occurred"`
	ActorID        *uuid.UUID `gorm:"type:uuid;index"`
	ActorRole      string     `gorm:"type:varchar(20);not null;default:''"`
	Action         string     `gorm:"type:varchar(40);not null;index"`
	TargetType     string     `gorm:"type:varchar(40);not null;index:idx_audit_logs_target"`
	TargetID       string     `gorm:"type:varchar(64);not null;index:idx_audit_logs_target"`
	RequestID      string     `gorm:"type:varchar(64);not null;default:''"`
	IdempotencyKey string     `gorm:"type:varchar(128);not null;default:''"`
	IPAddress      string     `gorm:"column:ip_address;type:varchar(45);not null;default:''"`
	UserAgent      string     `gorm:"type:varchar(512);not null;default:''"`
	BeforeJSON     *string    `gorm:"column:before;type:jsonb"`
	AfterJSON      *string    `gorm:"column:after;type:jsonb"`
	MetadataJSON   *string    `gorm:"column:metadata;type:jsonb"`
	Result         string     `gorm:"type:varchar(10);not null;index"`
	ErrorCode      string     `gorm:"type:varchar(40);not null;default:''"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the model to a domain AuditLog
func (m *AuditLogModel) ToDomain() *audit.AuditLog {
	return &audit.AuditLog{
		ID:             m.ID,
		OccurredAt:     m.OccurredAt,
		ActorID:        m.ActorID,
		ActorRole:      identity.AdminRole(m.ActorRole),
		Action:         audit.Action(m.Action),
		TargetType:     m.TargetType,
		TargetID:       m.TargetID,
		RequestID:      m.RequestID,
		IdempotencyKey: m.IdempotencyKey,
		IPAddress:      m.IPAddress,
		UserAgent:      m.UserAgent,
		Before:         decodeJSONMap(m.BeforeJSON, "before"),
		After:          decodeJSONMap(m.AfterJSON, "after"),
		Metadata:       decodeJSONMap(m.MetadataJSON, "metadata"),
		Result:         audit.Result(m.Result),
		ErrorCode:      m.ErrorCode,
	}
}

// AuditLogModelFromDomain creates a model from a domain AuditLog
func AuditLogModelFromDomain(l *audit.AuditLog) (*AuditLogModel, error) {
	before, err := encodeJSONMap(l.Before)
	if err != nil {
		return nil, err
	}
	after, err := encodeJSONMap(l.After)
	if err != nil {
		return nil, err
	}
	metadata, err := encodeJSONMap(l.Metadata)
	if err != nil {
		return nil, err
	}
	return &AuditLogModel{
		ID:             l.ID,
		OccurredAt:     l.OccurredAt,
		ActorID:        l.ActorID,
		ActorRole:      string(l.ActorRole),
		Action:         string(l.Action),
		TargetType:     l.TargetType,
		TargetID:       l.TargetID,
		RequestID:      l.RequestID,
		IdempotencyKey: l.IdempotencyKey,
		IPAddress:      l.IPAddress,
		UserAgent:      l.UserAgent,
		BeforeJSON:     before,
		AfterJSON:      after,
		MetadataJSON:   metadata,
		Result:         string(l.Result),
		ErrorCode:      l.ErrorCode,
	}, nil
}

func encodeJSONMap(m map[string]any) (*string, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

func decodeJSONMap(raw *string, column string) map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(*raw), &m); err != nil {
		zap.L().Warn("failed to parse audit JSON column",
			zap.String("column", column),
			zap.Error(err),
		)
		return nil
	}
	return m
}
