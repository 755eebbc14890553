package identity

import (
	"testing"
	"time"

	"github.com/shopadmin/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStaffUser(t *testing.T) {
	t.Run("creates active staff with hashed password", func(t *testing.T) {
		u, err := NewStaffUser(" Ops@Example.com ", "Kim", "Password123", RoleOps)

		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", u.Email)
		assert.True(t, u.IsActive)
		assert.True(t, u.IsStaff)
		assert.False(t, u.IsSuperuser)
		assert.NotEqual(t, "Password123", u.PasswordHash)
		assert.True(t, u.VerifyPassword("Password123"))
		assert.False(t, u.VerifyPassword("wrong-password"))
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		_, err := NewStaffUser("not-an-email", "Kim", "Password123", RoleOps)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects unknown role", func(t *testing.T) {
		_, err := NewStaffUser("a@example.com", "Kim", "Password123", AdminRole("ROOT"))
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("rejects short password", func(t *testing.T) {
		_, err := NewStaffUser("a@example.com", "Kim", "short", RoleOps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 8 characters")
	})
}

func TestStaffUser_EffectiveRole(t *testing.T) {
	u := &StaffUser{AdminRole: RoleReadOnly}
	assert.Equal(t, RoleReadOnly, u.EffectiveRole())
	assert.False(t, u.Permissions().Has(PermRefundExecute))

	u.IsSuperuser = true
	assert.Equal(t, RoleSuperAdmin, u.EffectiveRole())
	assert.True(t, u.Permissions().Has(PermRefundExecute))
}

func TestStaffUser_ChangeRole(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("returns previous role", func(t *testing.T) {
		u := &StaffUser{BaseEntity: shared.NewBaseEntity(), AdminRole: RoleOps}
		old, err := u.ChangeRole(RoleFinance, now)

		require.NoError(t, err)
		assert.Equal(t, RoleOps, old)
		assert.Equal(t, RoleFinance, u.AdminRole)
		assert.Equal(t, now, u.UpdatedAt)
	})

	t.Run("superuser role is fixed", func(t *testing.T) {
		u := &StaffUser{BaseEntity: shared.NewBaseEntity(), AdminRole: RoleSuperAdmin, IsSuperuser: true}
		_, err := u.ChangeRole(RoleOps, now)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, RoleSuperAdmin, u.AdminRole)
	})

	t.Run("unknown role", func(t *testing.T) {
		u := &StaffUser{BaseEntity: shared.NewBaseEntity(), AdminRole: RoleOps}
		_, err := u.ChangeRole(AdminRole("X"), now)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

func TestStaffUser_Deactivate(t *testing.T) {
	now := time.Now()

	t.Run("cannot deactivate self", func(t *testing.T) {
		u := &StaffUser{BaseEntity: shared.NewBaseEntity(), IsActive: true}
		err := u.Deactivate(u.ID.String(), now)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.True(t, u.IsActive)
	})

	t.Run("superuser stays active", func(t *testing.T) {
		u := &StaffUser{BaseEntity: shared.NewBaseEntity(), IsActive: true, IsSuperuser: true}
		assert.Error(t, u.Deactivate("someone-else", now))
	})

	t.Run("deactivates other staff", func(t *testing.T) {
		u := &StaffUser{BaseEntity: shared.NewBaseEntity(), IsActive: true, IsStaff: true}
		require.NoError(t, u.Deactivate("someone-else", now))
		assert.False(t, u.IsActive)
		assert.False(t, u.CanAuthenticate())
	})
}

func TestStaffUser_UpdateProfile(t *testing.T) {
	u := &StaffUser{BaseEntity: shared.NewBaseEntity(), Name: "Old"}
	name := "  New Name "
	phone := "010-1234-5678"

	require.NoError(t, u.UpdateProfile(&name, &phone, time.Now()))
	assert.Equal(t, "New Name", u.Name)
	assert.Equal(t, "010-1234-5678", u.Phone)

	empty := " "
	assert.Error(t, u.UpdateProfile(&empty, nil, time.Now()))
}
