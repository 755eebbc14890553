package identity

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopadmin/backend/internal/domain/shared"
	"golang.org/x/crypto/bcrypt"
)

// Password cost for bcrypt
const bcryptCost = 12

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// StaffUser is a back-office account. Its role decides every permission it
// holds; there are no per-user grants.
type StaffUser struct {
	shared.BaseEntity
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	AdminRole    AdminRole
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	LastLoginAt  *time.Time
}

// NewStaffUser creates an active staff account with a hashed password
func NewStaffUser(email, name, password string, role AdminRole) (*StaffUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailRegex.MatchString(email) {
		return nil, shared.NewValidationError("Invalid email format", map[string]any{"email": email})
	}
	if !role.IsValid() {
		return nil, shared.NewValidationError("Unknown admin role", map[string]any{"admin_role": string(role)})
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	return &StaffUser{
		BaseEntity:   shared.NewBaseEntity(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		AdminRole:    role,
		IsActive:     true,
		IsStaff:      true,
	}, nil
}

// EffectiveRole returns the role permissions are resolved from. Superusers
// always act as SUPER_ADMIN.
func (u *StaffUser) EffectiveRole() AdminRole {
	if u.IsSuperuser {
		return RoleSuperAdmin
	}
	return u.AdminRole
}

// Permissions returns the permission set of the effective role
func (u *StaffUser) Permissions() PermissionSet {
	return PermissionsFor(u.EffectiveRole())
}

// CanAuthenticate reports whether the account may use the admin API
func (u *StaffUser) CanAuthenticate() bool {
	return u.IsActive && u.IsStaff
}

// VerifyPassword checks password against the stored hash
func (u *StaffUser) VerifyPassword(password string) bool {
	if u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password hash
func (u *StaffUser) SetPassword(password string, now time.Time) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch(now)
	return nil
}

// ChangeRole assigns a new admin role and returns the previous one.
// The role of a superuser is fixed.
func (u *StaffUser) ChangeRole(role AdminRole, now time.Time) (AdminRole, error) {
	if !role.IsValid() {
		return "", shared.NewValidationError("Unknown admin role", map[string]any{"admin_role": string(role)})
	}
	if u.IsSuperuser {
		return "", shared.NewValidationError("Superuser role cannot be changed", map[string]any{"user_id": u.ID.String()})
	}
	old := u.AdminRole
	u.AdminRole = role
	u.Touch(now)
	return old, nil
}

// UpdateProfile changes the display fields
func (u *StaffUser) UpdateProfile(name, phone *string, now time.Time) error {
	if name != nil {
		n := strings.TrimSpace(*name)
		if n == "" || len(n) > 100 {
			return shared.NewValidationError("Name must be 1-100 characters", map[string]any{"name": n})
		}
		u.Name = n
	}
	if phone != nil {
		p := strings.TrimSpace(*phone)
		if len(p) > 30 {
			return shared.NewValidationError("Phone cannot exceed 30 characters", nil)
		}
		u.Phone = p
	}
	u.Touch(now)
	return nil
}

// Deactivate disables the account. actorID is the staff member performing
// the change; nobody can deactivate themselves and superusers stay active.
func (u *StaffUser) Deactivate(actorID string, now time.Time) error {
	if u.ID.String() == actorID {
		return shared.NewValidationError("You cannot deactivate your own account", nil)
	}
	if u.IsSuperuser {
		return shared.NewValidationError("Superuser accounts cannot be deactivated", nil)
	}
	if !u.IsActive {
		return shared.NewValidationError("Account is already inactive", nil)
	}
	u.IsActive = false
	u.Touch(now)
	return nil
}

// RecordLogin stamps the last successful login
func (u *StaffUser) RecordLogin(now time.Time) {
	u.LastLoginAt = &now
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return shared.NewValidationError("Password must be at least 8 characters", nil)
	}
	if len(password) > 72 {
		return shared.NewValidationError("Password cannot exceed 72 bytes", nil)
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError(shared.CodeInternal, "Failed to hash password")
	}
	return string(hash), nil
}
