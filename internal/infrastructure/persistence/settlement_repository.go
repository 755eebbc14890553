package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSettlementRepository implements finance.SettlementRepository using GORM
type GormSettlementRepository struct {
	db *gorm.DB
}

// NewGormSettlementRepository creates a new GormSettlementRepository
func NewGormSettlementRepository(db *gorm.DB) *GormSettlementRepository {
	return &GormSettlementRepository{db: db}
}

// FindByID finds a settlement by ID
func (r *GormSettlementRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Settlement, error) {
	var model models.SettlementModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate("find settlement", err)
	}
	return model.ToDomain(), nil
}

// FindByOrderID finds the settlement of an order
func (r *GormSettlementRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) (*finance.Settlement, error) {
	var model models.SettlementModel
	if err := r.db.WithContext(ctx).First(&model, "order_id = ?", orderID).Error; err != nil {
		return nil, translate("find settlement by order", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns settlements matching the filter, newest first
func (r *GormSettlementRepository) FindAll(ctx context.Context, filter finance.SettlementFilter) ([]*finance.Settlement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SettlementModel{})
	if filter.Keyword != "" {
		query = query.Where("LOWER(order_no) LIKE ?"+likeEscape, likePattern(filter.Keyword))
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate("count settlements", err)
	}

	page := filter.Page.Normalize()
	var rows []models.SettlementModel
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translate("list settlements", err)
	}

	items := make([]*finance.Settlement, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return items, total, nil
}

// Create stores a new settlement
func (r *GormSettlementRepository) Create(ctx context.Context, s *finance.Settlement) error {
	return translate("create settlement", r.db.WithContext(ctx).Create(models.SettlementModelFromDomain(s)).Error)
}

// Save updates an existing settlement
func (r *GormSettlementRepository) Save(ctx context.Context, s *finance.Settlement) error {
	model := models.SettlementModelFromDomain(s)
	if err := saveVersioned(ctx, r.db, "save settlement", &model.EntityRow, model); err != nil {
		return err
	}
	s.Version = model.Version
	return nil
}

// Delete removes a settlement
func (r *GormSettlementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.SettlementModel{}, "id = ?", id)
	if result.Error != nil {
		return translate("delete settlement", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("delete settlement", gorm.ErrRecordNotFound)
	}
	return nil
}

var _ finance.SettlementRepository = (*GormSettlementRepository)(nil)
