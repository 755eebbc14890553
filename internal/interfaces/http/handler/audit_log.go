package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/audit"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
)

// AuditLogHandler serves the audit trail
type AuditLogHandler struct {
	BaseHandler
	auditService *admin.AuditService
}

// NewAuditLogHandler creates a new AuditLogHandler
func NewAuditLogHandler(auditService *admin.AuditService) *AuditLogHandler {
	return &AuditLogHandler{
		auditService: auditService,
	}
}

// List returns audit rows newest first.
// GET /api/v1/admin/audit-logs
func (h *AuditLogHandler) List(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req AuditLogListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	action, err := parseEnumQuery[audit.Action]("action", req.Action)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filter := audit.Filter{
		ActorID:    parseUUIDQuery(req.ActorID),
		Action:     action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		From:       parseTimeQuery(req.From),
		To:         parseTimeQuery(req.To),
		Page:       req.ToPage(),
	}
	if req.Result != "" {
		result := audit.Result(req.Result)
		filter.Result = &result
	}

	payload, err := h.auditService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}
