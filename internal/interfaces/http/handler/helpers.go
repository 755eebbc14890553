package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// parseUUIDParam reads a UUID path parameter
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, shared.NewValidationError("Invalid "+name, map[string]any{name: "Invalid UUID format"})
	}
	return id, nil
}

// parseUUIDQuery reads an optional UUID filter. Format is checked by binding.
func parseUUIDQuery(raw string) *uuid.UUID {
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

type enumValue interface {
	~string
	IsValid() bool
}

// parseEnumQuery converts an optional status filter, rejecting unknown values
func parseEnumQuery[T enumValue](field, raw string) (*T, error) {
	if raw == "" {
		return nil, nil
	}
	v := T(raw)
	if !v.IsValid() {
		return nil, shared.NewValidationError("Invalid "+field, map[string]any{field: "Unknown value " + raw})
	}
	return &v, nil
}

// parseTimeQuery converts an optional RFC 3339 filter. Format is checked by binding.
func parseTimeQuery(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &t
}
