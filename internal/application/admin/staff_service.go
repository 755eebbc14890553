package admin

import (
	"context"
	"time"

	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/domain/shared"
)

// StaffService manages accounts and staff roles
type StaffService struct {
	pipeline *Pipeline
	revoker  TokenRevoker
	// revokeTTL must cover the longest-lived token
	revokeTTL time.Duration
}

// NewStaffService creates a new StaffService. A nil revoker skips token
// revocation.
func NewStaffService(pipeline *Pipeline, revoker TokenRevoker, revokeTTL time.Duration) *StaffService {
	return &StaffService{
		pipeline:  pipeline,
		revoker:   revoker,
		revokeTTL: revokeTTL,
	}
}

// ===================== Query Methods =====================

// ListUsers returns a page of accounts, masked for the actor
func (s *StaffService) ListUsers(ctx context.Context, actor Actor, filter identity.StaffFilter) (any, error) {
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermUserView, TargetType: audit.TargetUser},
		func(ctx context.Context, repos Repositories) (any, error) {
			users, total, err := repos.Staff().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			items := make([]UserResponse, len(users))
			for i, u := range users {
				items[i] = NewUserResponse(u)
			}
			return shared.NewPaginated(items, total, filter.Page), nil
		})
}

// ListStaff returns the staff directory
func (s *StaffService) ListStaff(ctx context.Context, actor Actor, filter identity.StaffFilter) (any, error) {
	filter.StaffOnly = true
	return s.pipeline.Read(ctx, actor, Read{Permission: identity.PermStaffView, TargetType: audit.TargetUser},
		func(ctx context.Context, repos Repositories) (any, error) {
			users, total, err := repos.Staff().FindAll(ctx, filter)
			if err != nil {
				return nil, err
			}
			items := make([]StaffResponse, len(users))
			for i, u := range users {
				items[i] = NewStaffResponse(u)
			}
			return shared.NewPaginated(items, total, filter.Page), nil
		})
}

// ===================== Command Methods =====================

// UpdateUser changes profile fields and, for SUPER_ADMIN actors only, the
// admin role. A role change is audited as ADMIN_ROLE_CHANGED and revokes the
// user's outstanding tokens.
func (s *StaffService) UpdateUser(ctx context.Context, actor Actor, in UpdateUserInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointUpdateUser,
		Permission:     identity.PermUserUpdate,
		Action:         audit.ActionStaffUpdated,
		TargetType:     audit.TargetUser,
		TargetID:       in.ID.String(),
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		if in.Name == nil && in.Phone == nil && in.AdminRole == nil {
			return nil, shared.NewValidationError("No changes requested", nil)
		}
		user, err := repos.Staff().FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		before := userSnapshot(user)
		now := s.pipeline.Clock().Now()
		change := &Change{Before: before, Message: "User updated"}

		if in.AdminRole != nil && identity.AdminRole(*in.AdminRole) != user.AdminRole {
			if !actor.IsSuperAdmin() {
				return nil, shared.ErrForbidden.WithDetails(map[string]any{
					"field":         "admin_role",
					"required_role": string(identity.RoleSuperAdmin),
				})
			}
			oldRole, err := user.ChangeRole(identity.AdminRole(*in.AdminRole), now)
			if err != nil {
				return nil, err
			}
			change.Action = audit.ActionAdminRoleChanged
			change.Message = "Admin role changed"
			change.Metadata = map[string]any{
				"old_role": string(oldRole),
				"new_role": string(user.AdminRole),
			}
			change.OnCommit = s.revokeTokens(user.ID.String())
		}
		if in.Name != nil || in.Phone != nil {
			if err := user.UpdateProfile(in.Name, in.Phone, now); err != nil {
				return nil, err
			}
		}

		if err := repos.Staff().Save(ctx, user); err != nil {
			return nil, err
		}
		change.After = userSnapshot(user)
		change.Data = NewUserResponse(user)
		return change, nil
	})
}

// Deactivate disables an account and revokes its tokens. Staff cannot
// deactivate themselves and superusers cannot be deactivated.
func (s *StaffService) Deactivate(ctx context.Context, actor Actor, in DeactivateUserInput) (*Result, error) {
	m := Mutation{
		Endpoint:       EndpointDeactivateUser,
		Permission:     identity.PermUserUpdate,
		Action:         audit.ActionStaffDeactivated,
		TargetType:     audit.TargetUser,
		TargetID:       in.ID.String(),
		IdempotencyKey: in.IdempotencyKey,
		Request:        in,
	}
	return s.pipeline.Mutate(ctx, actor, m, func(ctx context.Context, repos Repositories) (*Change, error) {
		user, err := repos.Staff().FindByID(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		before := userSnapshot(user)
		if err := user.Deactivate(actor.ID.String(), s.pipeline.Clock().Now()); err != nil {
			return nil, err
		}
		if err := repos.Staff().Save(ctx, user); err != nil {
			return nil, err
		}
		return &Change{
			Before:   before,
			After:    userSnapshot(user),
			Message:  "User deactivated",
			Data:     NewUserResponse(user),
			OnCommit: s.revokeTokens(user.ID.String()),
		}, nil
	})
}

func (s *StaffService) revokeTokens(userID string) func(context.Context) error {
	if s.revoker == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.revoker.AddUserTokensToBlacklist(ctx, userID, s.revokeTTL)
	}
}
