package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermissionsFor(t *testing.T) {
	t.Run("super admin holds every permission", func(t *testing.T) {
		set := PermissionsFor(RoleSuperAdmin)
		for _, p := range AllPermissions() {
			assert.True(t, set.Has(p), "SUPER_ADMIN should have %s", p)
		}
		assert.Equal(t, 24, set.Len())
	})

	t.Run("unknown role resolves to empty set", func(t *testing.T) {
		set := PermissionsFor(AdminRole("INTERN"))
		assert.Equal(t, 0, set.Len())
		assert.False(t, set.Has(PermDashboardView))
	})

	t.Run("zero value set is empty", func(t *testing.T) {
		var set PermissionSet
		assert.False(t, set.Has(PermOrderView))
		assert.Empty(t, set.Slice())
	})
}

func TestPermissionMatrix(t *testing.T) {
	cases := []struct {
		role AdminRole
		perm Permission
		want bool
	}{
		{RoleOps, PermOrderUpdate, true},
		{RoleOps, PermSettlementView, false},
		{RoleOps, PermSettlementUpdate, false},
		{RoleOps, PermPIIFullView, false},
		{RoleOps, PermStaffView, true},
		{RoleCS, PermReturnUpdate, true},
		{RoleCS, PermRefundExecute, false},
		{RoleCS, PermUserView, true},
		{RoleWarehouse, PermOrderUpdate, true},
		{RoleWarehouse, PermReturnView, false},
		{RoleFinance, PermRefundExecute, true},
		{RoleFinance, PermSettlementUpdate, true},
		{RoleFinance, PermPIIFullView, true},
		{RoleFinance, PermOrderUpdate, false},
		{RoleFinance, PermStaffView, false},
		{RoleMarketing, PermCouponUpdate, true},
		{RoleMarketing, PermOrderView, false},
		{RoleReadOnly, PermAuditLogView, true},
		{RoleReadOnly, PermOrderUpdate, false},
		{RoleReadOnly, PermPIIFullView, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+string(tc.perm), func(t *testing.T) {
			assert.Equal(t, tc.want, HasPermission(tc.role, tc.perm))
		})
	}
}

func TestPermissionMatrixSizes(t *testing.T) {
	sizes := map[AdminRole]int{
		RoleSuperAdmin: 24,
		RoleOps:        8,
		RoleCS:         11,
		RoleWarehouse:  5,
		RoleFinance:    11,
		RoleMarketing:  9,
		RoleReadOnly:   11,
	}
	for role, n := range sizes {
		assert.Equal(t, n, PermissionsFor(role).Len(), string(role))
	}
}

func TestOnlySuperAdminAndFinanceSeeFullPII(t *testing.T) {
	for _, role := range AllRoles() {
		want := role == RoleSuperAdmin || role == RoleFinance
		assert.Equal(t, want, HasPermission(role, PermPIIFullView), string(role))
	}
}

func TestPermissionSet_Strings(t *testing.T) {
	set := NewPermissionSet(PermOrderView, PermDashboardView, PermOrderView)
	assert.Equal(t, []string{"DASHBOARD_VIEW", "ORDER_VIEW"}, set.Strings())
}

func TestParseAdminRole(t *testing.T) {
	r, ok := ParseAdminRole(" finance ")
	assert.True(t, ok)
	assert.Equal(t, RoleFinance, r)

	_, ok = ParseAdminRole("root")
	assert.False(t, ok)
}
