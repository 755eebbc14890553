package models

import (
	"time"

	"github.com/shopadmin/backend/internal/domain/identity"
)

// StaffUserModel is the persistence model for back-office accounts
type StaffUserModel struct {
	EntityRow
	Email        string     `gorm:"type:varchar(254);not null;uniqueIndex"`
	Name         string     `gorm:"type:varchar(100);not null;default:''"`
	Phone        string     `gorm:"type:varchar(30);not null;default:''"`
	PasswordHash string     `gorm:"type:varchar(255);not null"`
	AdminRole    string     `gorm:"type:varchar(20);not null;index"`
	IsActive     bool       `gorm:"not null"`
	IsStaff      bool       `gorm:"not null"`
	IsSuperuser  bool       `gorm:"not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// TableName returns the table name for GORM
func (StaffUserModel) TableName() string {
	return "staff_users"
}

// ToDomain converts the model to a domain StaffUser
func (m *StaffUserModel) ToDomain() *identity.StaffUser {
	return &identity.StaffUser{
		BaseEntity:   m.EntityRow.Entity(),
		Email:        m.Email,
		Name:         m.Name,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		AdminRole:    identity.AdminRole(m.AdminRole),
		IsActive:     m.IsActive,
		IsStaff:      m.IsStaff,
		IsSuperuser:  m.IsSuperuser,
		LastLoginAt:  m.LastLoginAt,
	}
}

// StaffUserModelFromDomain creates a model from a domain StaffUser
func StaffUserModelFromDomain(u *identity.StaffUser) *StaffUserModel {
	m := &StaffUserModel{
		Email:        u.Email,
		Name:         u.Name,
		Phone:        u.Phone,
		PasswordHash: u.PasswordHash,
		AdminRole:    string(u.AdminRole),
		IsActive:     u.IsActive,
		IsStaff:      u.IsStaff,
		IsSuperuser:  u.IsSuperuser,
		LastLoginAt:  u.LastLoginAt,
	}
	m.EntityRow = entityRow(u.BaseEntity)
	return m
}
