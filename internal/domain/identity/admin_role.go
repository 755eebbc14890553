package identity

import "strings"

// AdminRole is the closed set of back-office roles a staff user can hold
type AdminRole string

const (
	RoleSuperAdmin AdminRole = "SUPER_ADMIN"
	RoleOps        AdminRole = "OPS"
	RoleCS         AdminRole = "CS"
	RoleWarehouse  AdminRole = "WAREHOUSE"
	RoleFinance    AdminRole = "FINANCE"
	RoleMarketing  AdminRole = "MARKETING"
	RoleReadOnly   AdminRole = "READ_ONLY"
)

// AllRoles returns every known role in a stable order
func AllRoles() []AdminRole {
	return []AdminRole{
		RoleSuperAdmin,
		RoleOps,
		RoleCS,
		RoleWarehouse,
		RoleFinance,
		RoleMarketing,
		RoleReadOnly,
	}
}

// IsValid checks if the role is one of the known roles
func (r AdminRole) IsValid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// String returns the string representation
func (r AdminRole) String() string {
	return string(r)
}

// ParseAdminRole normalizes and validates a role name.
func ParseAdminRole(s string) (AdminRole, bool) {
	r := AdminRole(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}
