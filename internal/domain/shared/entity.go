package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps every persisted entity has.
// Version is the optimistic lock; repositories bump it on every save.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int
}

// Touch bumps the update timestamp.
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// NewBaseEntity creates a base entity stamped with the wall clock
func NewBaseEntity() BaseEntity {
	return NewBaseEntityAt(time.Now())
}

// NewBaseEntityAt creates a base entity with a time-ordered (v7) ID so
// primary keys sort by creation
func NewBaseEntityAt(now time.Time) BaseEntity {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return BaseEntity{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}
