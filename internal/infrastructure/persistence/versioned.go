package persistence

import (
	"context"

	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// saveVersioned writes every column of model, whose entity columns are row,
// only if the stored version still matches row.Version. On success row
// carries the bumped version. A missing row is ErrNotFound and a version
// mismatch is ErrConcurrentModification.
func saveVersioned(ctx context.Context, db *gorm.DB, op string, row *models.EntityRow, model any) error {
	current := row.Version
	row.Version = current + 1

	result := db.WithContext(ctx).Model(model).
		Where("id = ? AND version = ?", row.ID, current).
		Select("*").Omit("id", "created_at").
		Updates(model)
	if result.Error != nil {
		row.Version = current
		return translate(op, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	row.Version = current
	var count int64
	if err := db.WithContext(ctx).Model(model).Where("id = ?", row.ID).Count(&count).Error; err != nil {
		return translate(op, err)
	}
	if count == 0 {
		return translate(op, gorm.ErrRecordNotFound)
	}
	return shared.ErrConcurrentModification
}
