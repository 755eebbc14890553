package admin

import (
	"github.com/google/uuid"
	"github.com/shopadmin/backend/internal/domain/identity"
)

// Actor is the authenticated staff member a request runs as. It is built
// from the stored user on every request and passed explicitly through each
// pipeline stage.
type Actor struct {
	ID          uuid.UUID
	Email       string
	Name        string
	Role        identity.AdminRole
	Permissions identity.PermissionSet
}

// NewActor resolves the actor's permissions from the stored role
func NewActor(u *identity.StaffUser) Actor {
	return Actor{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.EffectiveRole(),
		Permissions: u.Permissions(),
	}
}

// Can reports whether the actor holds permission p
func (a Actor) Can(p identity.Permission) bool {
	return a.Permissions.Has(p)
}

// IsSuperAdmin reports whether the actor acts as SUPER_ADMIN
func (a Actor) IsSuperAdmin() bool {
	return a.Role == identity.RoleSuperAdmin
}
