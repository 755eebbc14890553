package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

const likeEscape = ` ESCAPE '\'`

// GormStaffRepository implements identity.StaffRepository using GORM
type GormStaffRepository struct {
	db *gorm.DB
}

// NewGormStaffRepository creates a new GormStaffRepository
func NewGormStaffRepository(db *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: db}
}

// WithTx returns a repository bound to the given transaction
func (r *GormStaffRepository) WithTx(tx *gorm.DB) *GormStaffRepository {
	return &GormStaffRepository{db: tx}
}

// Create stores a new staff user
func (r *GormStaffRepository) Create(ctx context.Context, user *identity.StaffUser) error {
	model := models.StaffUserModelFromDomain(user)
	return translate("create staff user", r.db.WithContext(ctx).Create(model).Error)
}

// Save updates an existing staff user
func (r *GormStaffRepository) Save(ctx context.Context, user *identity.StaffUser) error {
	model := models.StaffUserModelFromDomain(user)
	if err := saveVersioned(ctx, r.db, "save staff user", &model.EntityRow, model); err != nil {
		return err
	}
	user.Version = model.Version
	return nil
}

// FindByID finds a staff user by ID
func (r *GormStaffRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.StaffUser, error) {
	var model models.StaffUserModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translate("find staff user", err)
	}
	return model.ToDomain(), nil
}

// FindByEmail finds a staff user by email, case-insensitively
func (r *GormStaffRepository) FindByEmail(ctx context.Context, email string) (*identity.StaffUser, error) {
	var model models.StaffUserModel
	if err := r.db.WithContext(ctx).
		First(&model, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, translate("find staff user by email", err)
	}
	return model.ToDomain(), nil
}

// FindAll returns staff users matching the filter, newest first
func (r *GormStaffRepository) FindAll(ctx context.Context, filter identity.StaffFilter) ([]*identity.StaffUser, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.StaffUserModel{})
	if filter.Keyword != "" {
		p := likePattern(filter.Keyword)
		query = query.Where("(LOWER(email) LIKE ?"+likeEscape+" OR LOWER(name) LIKE ?"+likeEscape+")", p, p)
	}
	if filter.Role != nil {
		query = query.Where("admin_role = ?", string(*filter.Role))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.StaffOnly {
		query = query.Where("is_staff = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate("count staff users", err)
	}

	page := filter.Page.Normalize()
	var rows []models.StaffUserModel
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, translate("list staff users", err)
	}

	users := make([]*identity.StaffUser, len(rows))
	for i := range rows {
		users[i] = rows[i].ToDomain()
	}
	return users, total, nil
}

var _ identity.StaffRepository = (*GormStaffRepository)(nil)
