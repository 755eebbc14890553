package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/identity"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
)

// UserHandler handles account and staff directory endpoints
type UserHandler struct {
	BaseHandler
	staffService *admin.StaffService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(staffService *admin.StaffService) *UserHandler {
	return &UserHandler{
		staffService: staffService,
	}
}

func (h *UserHandler) bindFilter(c *gin.Context) (identity.StaffFilter, bool) {
	var req UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return identity.StaffFilter{}, false
	}

	filter := identity.StaffFilter{
		Keyword:  req.Search,
		IsActive: req.IsActive,
		Page:     req.ToPage(),
	}
	if role, ok := identity.ParseAdminRole(req.Role); ok {
		filter.Role = &role
	}
	return filter, true
}

// ListUsers returns a page of accounts.
// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	payload, err := h.staffService.ListUsers(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}

// ListStaff returns the staff directory.
// GET /api/v1/admin/staff
func (h *UserHandler) ListStaff(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}
	filter, ok := h.bindFilter(c)
	if !ok {
		return
	}

	payload, err := h.staffService.ListStaff(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}

// Update changes a user's profile or admin role.
// PATCH /api/v1/admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req UpdateUserRequest
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.staffService.UpdateUser(c.Request.Context(), actor, admin.UpdateUserInput{
		ID:             id,
		Name:           req.Name,
		Phone:          req.Phone,
		AdminRole:      req.AdminRole,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}

// Deactivate disables a user and revokes their tokens.
// DELETE /api/v1/admin/users/:id
func (h *UserHandler) Deactivate(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req struct{}
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.staffService.Deactivate(c.Request.Context(), actor, admin.DeactivateUserInput{
		ID:             id,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}
