package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
)

// ReturnHandler handles return request endpoints
type ReturnHandler struct {
	BaseHandler
	returnService *admin.ReturnService
}

// NewReturnHandler creates a new ReturnHandler
func NewReturnHandler(returnService *admin.ReturnService) *ReturnHandler {
	return &ReturnHandler{
		returnService: returnService,
	}
}

// List returns a page of return requests.
// GET /api/v1/admin/returns
func (h *ReturnHandler) List(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req ReturnListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	status, err := parseEnumQuery[trade.ReturnStatus]("status", req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payload, err := h.returnService.List(c.Request.Context(), actor, trade.ReturnFilter{
		Keyword: req.Search,
		Status:  status,
		OrderID: parseUUIDQuery(req.OrderID),
		Page:    req.ToPage(),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}

// Create opens a return request for an order.
// POST /api/v1/admin/returns
func (h *ReturnHandler) Create(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req CreateReturnRequest
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.returnService.Create(c.Request.Context(), actor, admin.CreateReturnInput{
		OrderNo:         req.OrderNo,
		ReasonTitle:     req.ReasonTitle,
		ReasonDetail:    req.ReasonDetail,
		RequestedAmount: req.RequestedAmount,
		IdempotencyKey:  key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}

// Update moves a return through its workflow. Reaching REFUNDED executes
// the refund.
// PATCH /api/v1/admin/returns/:id
func (h *ReturnHandler) Update(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req UpdateReturnRequest
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.returnService.Update(c.Request.Context(), actor, admin.UpdateReturnInput{
		ID:                id,
		Status:            req.Status,
		ApprovedAmount:    req.ApprovedAmount,
		RejectedReason:    req.RejectedReason,
		PickupCourierName: req.PickupCourierName,
		PickupTrackingNo:  req.PickupTrackingNo,
		AdminNote:         req.AdminNote,
		IdempotencyKey:    key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}

// Delete removes a return request.
// DELETE /api/v1/admin/returns/:id
func (h *ReturnHandler) Delete(c *gin.Context) {
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

	result, err := h.returnService.Delete(c.Request.Context(), actor, admin.DeleteReturnInput{
		ID:             id,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}
