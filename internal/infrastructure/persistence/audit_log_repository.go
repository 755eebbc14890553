package persistence

import (
	"context"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditLogRepository implements audit.Repository using GORM.
// It only inserts and reads; audit rows are never updated or deleted.
type GormAuditLogRepository struct {
	db *gorm.DB
}

// NewGormAuditLogRepository creates a new GormAuditLogRepository
func NewGormAuditLogRepository(db *gorm.DB) *GormAuditLogRepository {
	return &GormAuditLogRepository{db: db}
}

// Create appends an audit row
func (r *GormAuditLogRepository) Create(ctx context.Context, log *audit.AuditLog) error {
	model, err := models.AuditLogModelFromDomain(log)
	if err != nil {
		return translate("encode audit log", err)
	}
	return translate("create audit log", r.db.WithContext(ctx).Create(model).Error)
}

// FindAll returns rows matching the filter ordered by occurred_at desc, id desc
func (r *GormAuditLogRepository) FindAll(ctx context.Context, filter audit.Filter) ([]*audit.AuditLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLogModel{})
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", string(*filter.Action))
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.Result != nil {
		query = query.Where("result = ?", string(*filter.Result))
	}
	if filter.From != nil {
		query = query.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("occurred_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate("count audit logs", err)
	}

	page := filter.Page.Normalize()
	var rows []models.AuditLogModel
	if err := query.Order("occurred_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translate("list audit logs", err)
	}

	logs := make([]*audit.AuditLog, len(rows))
	for i := range rows {
		logs[i] = rows[i].ToDomain()
	}
	return logs, total, nil
}

var _ audit.Repository = (*GormAuditLogRepository)(nil)
