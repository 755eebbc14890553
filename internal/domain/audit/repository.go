package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// Repository persists audit rows. Implementations expose no update or delete.
type Repository interface {
	// Create appends an audit row
	Create(ctx context.Context, log *AuditLog) error

	// FindAll returns rows matching the filter ordered by occurred_at desc, id desc
	FindAll(ctx context.Context, filter Filter) ([]*AuditLog, int64, error)
}

// Filter contains filter options for listing audit rows
type Filter struct {
	ActorID    *uuid.UUID
	Action     *Action
	TargetType string
	TargetID   string
	Result     *Result
	From       *time.Time
	To         *time.Time

	shared.Page
}
