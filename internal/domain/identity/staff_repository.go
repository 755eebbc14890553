package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// StaffRepository defines the interface for staff user persistence
type StaffRepository interface {
	// Create stores a new staff user
	Create(ctx context.Context, user *StaffUser) error

	// Save updates an existing staff user
	Save(ctx context.Context, user *StaffUser) error

	// FindByID finds a staff user by ID
	FindByID(ctx context.Context, id uuid.UUID) (*StaffUser, error)

	// FindByEmail finds a staff user by email
	FindByEmail(ctx context.Context, email string) (*StaffUser, error)

	// FindAll returns staff users matching the filter
	FindAll(ctx context.Context, filter StaffFilter) ([]*StaffUser, int64, error)
}

// StaffFilter contains filter options for querying staff users
type StaffFilter struct {
	// Search keyword for email or name
	Keyword string

	Role      *AdminRole
	IsActive  *bool
	StaffOnly bool

	shared.Page
}
