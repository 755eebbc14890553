package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/finance"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
)

// SettlementHandler handles settlement endpoints
type SettlementHandler struct {
	BaseHandler
	settlementService *admin.SettlementService
}

// NewSettlementHandler creates a new SettlementHandler
func NewSettlementHandler(settlementService *admin.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
	}
}

// List returns a page of settlements.
// GET /api/v1/admin/settlements
func (h *SettlementHandler) List(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req SettlementListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	status, err := parseEnumQuery[finance.SettlementStatus]("status", req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payload, err := h.settlementService.List(c.Request.Context(), actor, finance.SettlementFilter{
		Page:    req.ToPage(),
		Keyword: req.Search,
		Status:  status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}

// Generate creates settlements for paid orders that have none.
// POST /api/v1/admin/settlements/generate
func (h *SettlementHandler) Generate(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req GenerateSettlementsRequest
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.settlementService.Generate(c.Request.Context(), actor, admin.GenerateSettlementsInput{
		Limit:          req.Limit,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}

// Update changes fees, payout date, memo or status of a settlement.
// PATCH /api/v1/admin/settlements/:id
func (h *SettlementHandler) Update(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req UpdateSettlementRequest
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.settlementService.Update(c.Request.Context(), actor, admin.UpdateSettlementInput{
		ID:                 id,
		Status:             req.Status,
		PGFee:              req.PGFee,
		PlatformFee:        req.PlatformFee,
		ReturnDeduction:    req.ReturnDeduction,
		ExpectedPayoutDate: req.ExpectedPayoutDate,
		Memo:               req.Memo,
		IdempotencyKey:     key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}

// Delete removes a settlement that has not been paid.
// DELETE /api/v1/admin/settlements/:id
func (h *SettlementHandler) Delete(c *gin.Context) {
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

	result, err := h.settlementService.Delete(c.Request.Context(), actor, admin.DeleteSettlementInput{
		ID:             id,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}
