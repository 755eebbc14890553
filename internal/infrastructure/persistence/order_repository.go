package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate("find order", err)
	}
	return model.ToDomain(), nil
}

// FindByOrderNo finds an order by its public order number
func (r *GormOrderRepository) FindByOrderNo(ctx context.Context, orderNo string) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "order_no = ?", orderNo).Error; err != nil {
		return nil, translate("find order by number", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns orders matching the filter, newest first
func (r *GormOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]*trade.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.Keyword != "" {
		p := likePattern(filter.Keyword)
		query = query.Where(
			"(LOWER(order_no) LIKE ?"+likeEscape+
				" OR LOWER(user_email) LIKE ?"+likeEscape+
				" OR LOWER(recipient) LIKE ?"+likeEscape+
				" OR phone LIKE ?"+likeEscape+
				" OR LOWER(road_address) LIKE ?"+likeEscape+")",
			p, p, p, p, p)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", string(*filter.PaymentStatus))
	}
	if filter.ShippingStatus != nil {
		query = query.Where("shipping_status = ?", string(*filter.ShippingStatus))
	}
	if filter.HasOpenReturn {
		query = query.Where("EXISTS (?)",
			r.db.Model(&models.ReturnRequestModel{}).
				Select("1").
				Where("return_requests.order_id = orders.id AND return_requests.status IN ?", openReturnStatuses()))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate("count orders", err)
	}

	page := filter.Page.Normalize()
	var rows []models.OrderModel
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translate("list orders", err)
	}
	return ordersToDomain(rows), total, nil
}

// FindPaid returns up to limit orders whose payment was approved, newest first
func (r *GormOrderRepository) FindPaid(ctx context.Context, limit int) ([]*trade.Order, error) {
	var rows []models.OrderModel
	if err := r.db.WithContext(ctx).
		Where("payment_status = ?", string(trade.PaymentStatusApproved)).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, translate("list paid orders", err)
	}
	return ordersToDomain(rows), nil
}

// Create stores a new order
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	return translate("create order", r.db.WithContext(ctx).Create(models.OrderModelFromDomain(order)).Error)
}

// Save updates an existing order if nobody saved it since it was loaded
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	if err := saveVersioned(ctx, r.db, "save order", &model.EntityRow, model); err != nil {
		return err
	}
	order.Version = model.Version
	return nil
}

func ordersToDomain(rows []models.OrderModel) []*trade.Order {
	orders := make([]*trade.Order, len(rows))
	for i := range rows {
		orders[i] = rows[i].ToDomain()
	}
	return orders
}

func openReturnStatuses() []string {
	statuses := make([]string, len(trade.OpenReturnStatuses))
	for i, s := range trade.OpenReturnStatuses {
		statuses[i] = string(s)
	}
	return statuses
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
