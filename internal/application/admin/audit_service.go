package admin

import (
	"context"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// AuditService exposes the audit trail
type AuditService struct {
	pipeline *Pipeline
}

// NewAuditService creates a new AuditService
func NewAuditService(pipeline *Pipeline) *AuditService {
	return &AuditService{pipeline: pipeline}
}

// List returns audit rows newest first
func (s *AuditService) List(ctx context.Context, actor Actor, filter audit.Filter) (any, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, shared.NewValidationError("from must not be after to", map[string]any{"from": filter.From, "to": filter.To})
	}
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermAuditLogView, TargetType: "AuditLog"},
		func(ctx context.Context, repos Repositories) (any, error) {
			rows, total, err := repos.AuditLogs().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			items := make([]AuditLogResponse, len(rows))
			for i, row := range rows {
				items[i] = NewAuditLogResponse(row)
			}
			return shared.NewPaginated(items, total, filter.Page), nil
		})
}
