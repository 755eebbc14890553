package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopadmin/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// translate maps gorm errors onto the domain taxonomy and wraps the rest
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return shared.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return shared.NewDomainError(shared.CodeConflict, "Resource already exists")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// likePattern builds a case-insensitive contains pattern
func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(strings.TrimSpace(keyword))) + "%"
}
