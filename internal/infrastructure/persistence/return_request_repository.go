package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormReturnRequestRepository implements trade.ReturnRequestRepository using GORM
type GormReturnRequestRepository struct {
	db *gorm.DB
}

// NewGormReturnRequestRepository creates a new GormReturnRequestRepository
func NewGormReturnRequestRepository(db *gorm.DB) *GormReturnRequestRepository {
	return &GormReturnRequestRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormReturnRequestRepository) WithTx(tx *gorm.DB) *GormReturnRequestRepository {
	return &GormReturnRequestRepository{db: tx}
}

// FindByID finds a return request by ID
func (r *GormReturnRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.ReturnRequest, error) {
	var model models.ReturnRequestModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate("find return request", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns return requests matching the filter, newest first
func (r *GormReturnRequestRepository) FindAll(ctx context.Context, filter trade.ReturnFilter) ([]*trade.ReturnRequest, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReturnRequestModel{})
	if filter.Keyword != "" {
		p := likePattern(filter.Keyword)
		query = query.Where("(LOWER(order_no) LIKE ?"+likeEscape+" OR LOWER(reason_title) LIKE ?"+likeEscape+")", p, p)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.OrderID != nil {
		query = query.Where("order_id = ?", *filter.OrderID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate("count return requests", err)
	}

	page := filter.Page.Normalize()
	var rows []models.ReturnRequestModel
	if err := query.Order("requested_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translate("list return requests", err)
	}

	returns := make([]*trade.ReturnRequest, len(rows))
	for i := range rows {
		returns[i] = rows[i].ToDomain()
	}
	return returns, total, nil
}

// Create stores a new return request
func (r *GormReturnRequestRepository) Create(ctx context.Context, ret *trade.ReturnRequest) error {
	return translate("create return request", r.db.WithContext(ctx).Create(models.ReturnRequestModelFromDomain(ret)).Error)
}

// Save updates an existing return request
func (r *GormReturnRequestRepository) Save(ctx context.Context, ret *trade.ReturnRequest) error {
	model := models.ReturnRequestModelFromDomain(ret)
	if err := saveVersioned(ctx, r.db, "save return request", &model.EntityRow, model); err != nil {
		return err
	}
	ret.Version = model.Version
	return nil
}

// Delete removes a return request
func (r *GormReturnRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.ReturnRequestModel{}, "id = ?", id)
	if result.Error != nil {
		return translate("delete return request", result.Error)
	}
	if result.RowsAffected == 0 {
		return translate("delete return request", gorm.ErrRecordNotFound)
	}
	return nil
}

// HasOpenForOrder reports whether the order has a return in an open status
func (r *GormReturnRequestRepository) HasOpenForOrder(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ReturnRequestModel{}).
		Where("order_id = ? AND status IN ?", orderID, openReturnStatuses()).
		Count(&count).Error; err != nil {
		return false, translate("check open returns", err)
	}
	return count > 0, nil
}

var _ trade.ReturnRequestRepository = (*GormReturnRequestRepository)(nil)

// GormRefundRecordRepository implements trade.RefundRecordRepository using GORM
type GormRefundRecordRepository struct {
	db *gorm.DB
}

// NewGormRefundRecordRepository creates a new GormRefundRecordRepository
func NewGormRefundRecordRepository(db *gorm.DB) *GormRefundRecordRepository {
	return &GormRefundRecordRepository{db: db}
}

// Create stores a refund row. A second refund for the same return is a
// conflict.
func (r *GormRefundRecordRepository) Create(ctx context.Context, rec *trade.RefundRecord) error {
	err := r.db.WithContext(ctx).Create(models.RefundRecordModelFromDomain(rec)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.CodeConflict, "Refund was already executed for this return")
	}
	return translate("create refund record", err)
}

// CountByReturn counts refunds executed for a return
func (r *GormRefundRecordRepository) CountByReturn(ctx context.Context, returnID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.RefundRecordModel{}).
		Where("return_id = ?", returnID).
		Count(&count).Error; err != nil {
		return 0, translate("count refunds", err)
	}
	return count, nil
}

// SumByOrder totals every refund executed against an order
func (r *GormRefundRecordRepository) SumByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.WithContext(ctx).Model(&models.RefundRecordModel{}).
		Select("SUM(amount)").
		Where("order_id = ?", orderID).
		Row().Scan(&sum); err != nil {
		return decimal.Zero, translate("sum refunds", err)
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

var _ trade.RefundRecordRepository = (*GormRefundRecordRepository)(nil)
