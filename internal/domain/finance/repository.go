package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// SettlementFilter defines filtering options for settlement queries
type SettlementFilter struct {
	shared.Page
	Keyword string            // Order number or customer email
	Status  *SettlementStatus // Filter by status
}

// SettlementRepository defines the interface for settlement persistence
type SettlementRepository interface {
	// FindByID finds a settlement by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Settlement, error)

	// FindByOrderID finds the settlement of an order, or shared.ErrNotFound
	FindByOrderID(ctx context.Context, orderID uuid.UUID) (*Settlement, error)

	// FindAll returns settlements matching the filter, newest first
	FindAll(ctx context.Context, filter SettlementFilter) ([]*Settlement, int64, error)

	// Create stores a new settlement
	Create(ctx context.Context, s *Settlement) error

	// Save updates an existing settlement
	Save(ctx context.Context, s *Settlement) error

	// Delete removes a settlement
	Delete(ctx context.Context, id uuid.UUID) error
}
