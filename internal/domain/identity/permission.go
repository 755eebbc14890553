package identity

import "sort"

// Permission is a named back-office capability. Permissions are attached to
// roles statically and never stored per user.
type Permission string

const (
	PermDashboardView    Permission = "DASHBOARD_VIEW"
	PermOrderView        Permission = "ORDER_VIEW"
	PermOrderUpdate      Permission = "ORDER_UPDATE"
	PermReturnView       Permission = "RETURN_VIEW"
	PermReturnUpdate     Permission = "RETURN_UPDATE"
	PermRefundExecute    Permission = "REFUND_EXECUTE"
	PermSettlementView   Permission = "SETTLEMENT_VIEW"
	PermSettlementUpdate Permission = "SETTLEMENT_UPDATE"
	PermInquiryView      Permission = "INQUIRY_VIEW"
	PermInquiryUpdate    Permission = "INQUIRY_UPDATE"
	PermReviewView       Permission = "REVIEW_VIEW"
	PermReviewUpdate     Permission = "REVIEW_UPDATE"
	PermProductView      Permission = "PRODUCT_VIEW"
	PermProductUpdate    Permission = "PRODUCT_UPDATE"
	PermUserView         Permission = "USER_VIEW"
	PermUserUpdate       Permission = "USER_UPDATE"
	PermCouponView       Permission = "COUPON_VIEW"
	PermCouponUpdate     Permission = "COUPON_UPDATE"
	PermBannerView       Permission = "BANNER_VIEW"
	PermBannerUpdate     Permission = "BANNER_UPDATE"
	PermStaffView        Permission = "STAFF_VIEW"
	PermAuditLogView     Permission = "AUDIT_LOG_VIEW"
	PermPIIFullView      Permission = "PII_FULL_VIEW"
	PermPIIExport        Permission = "PII_EXPORT"
)

// AllPermissions returns every permission in declaration order
func AllPermissions() []Permission {
	return []Permission{
		PermDashboardView,
		PermOrderView,
		PermOrderUpdate,
		PermReturnView,
		PermReturnUpdate,
		PermRefundExecute,
		PermSettlementView,
		PermSettlementUpdate,
		PermInquiryView,
		PermInquiryUpdate,
		PermReviewView,
		PermReviewUpdate,
		PermProductView,
		PermProductUpdate,
		PermUserView,
		PermUserUpdate,
		PermCouponView,
		PermCouponUpdate,
		PermBannerView,
		PermBannerUpdate,
		PermStaffView,
		PermAuditLogView,
		PermPIIFullView,
		PermPIIExport,
	}
}

// PermissionSet is an immutable set of permissions
type PermissionSet struct {
	m map[Permission]struct{}
}

// NewPermissionSet builds a set from the given permissions
func NewPermissionSet(perms ...Permission) PermissionSet {
	m := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		m[p] = struct{}{}
	}
	return PermissionSet{m: m}
}

// Has reports whether p is in the set. The zero value is the empty set.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s.m[p]
	return ok
}

// Len returns the number of permissions
func (s PermissionSet) Len() int {
	return len(s.m)
}

// Slice returns the permissions sorted by name
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s.m))
	for p := range s.m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings returns the sorted permission names
func (s PermissionSet) Strings() []string {
	perms := s.Slice()
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}

var rolePermissions = map[AdminRole]PermissionSet{
	RoleSuperAdmin: NewPermissionSet(AllPermissions()...),
	RoleOps: NewPermissionSet(
		PermDashboardView,
		PermOrderView,
		PermOrderUpdate,
		PermReturnView,
		PermInquiryView,
		PermProductView,
		PermProductUpdate,
		PermStaffView,
	),
	RoleCS: NewPermissionSet(
		PermDashboardView,
		PermOrderView,
		PermOrderUpdate,
		PermReturnView,
		PermReturnUpdate,
		PermInquiryView,
		PermInquiryUpdate,
		PermReviewView,
		PermReviewUpdate,
		PermUserView,
		PermStaffView,
	),
	RoleWarehouse: NewPermissionSet(
		PermDashboardView,
		PermOrderView,
		PermOrderUpdate,
		PermProductView,
		PermProductUpdate,
	),
	RoleFinance: NewPermissionSet(
		PermDashboardView,
		PermOrderView,
		PermReturnView,
		PermReturnUpdate,
		PermRefundExecute,
		PermSettlementView,
		PermSettlementUpdate,
		PermUserView,
		PermAuditLogView,
		PermPIIFullView,
		PermPIIExport,
	),
	RoleMarketing: NewPermissionSet(
		PermDashboardView,
		PermProductView,
		PermProductUpdate,
		PermReviewView,
		PermReviewUpdate,
		PermCouponView,
		PermCouponUpdate,
		PermBannerView,
		PermBannerUpdate,
	),
	RoleReadOnly: NewPermissionSet(
		PermDashboardView,
		PermOrderView,
		PermReturnView,
		PermSettlementView,
		PermInquiryView,
		PermReviewView,
		PermProductView,
		PermUserView,
		PermCouponView,
		PermBannerView,
		PermAuditLogView,
	),
}

// PermissionsFor returns the permission set of a role. Unknown roles get the
// empty set.
func PermissionsFor(role AdminRole) PermissionSet {
	return rolePermissions[role]
}

// HasPermission reports whether role grants permission
func HasPermission(role AdminRole, permission Permission) bool {
	return PermissionsFor(role).Has(permission)
}
