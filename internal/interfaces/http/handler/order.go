package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/shopadmin/backend/internal/application/admin"
	"github.com/shopadmin/backend/internal/domain/trade"
	"github.com/shopadmin/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles back-office order endpoints
type OrderHandler struct {
	BaseHandler
	orderService *admin.OrderService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService *admin.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// List returns a page of orders.
// GET /api/v1/admin/orders
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req OrderListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	filter := trade.OrderFilter{
		Keyword:       req.Search,
		HasOpenReturn: req.HasOpenReturn,
		Page:          req.ToPage(),
	}
	var err error
	if filter.Status, err = parseEnumQuery[trade.OrderStatus]("status", req.Status); err != nil {
		h.HandleError(c, err)
		return
	}
	if filter.PaymentStatus, err = parseEnumQuery[trade.PaymentStatus]("payment_status", req.PaymentStatus); err != nil {
		h.HandleError(c, err)
		return
	}
	if filter.ShippingStatus, err = parseEnumQuery[trade.ShippingStatus]("shipping_status", req.ShippingStatus); err != nil {
		h.HandleError(c, err)
		return
	}

	payload, err := h.orderService.List(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}

// Get returns one order.
// GET /api/v1/admin/orders/:order_no
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	payload, err := h.orderService.Get(c.Request.Context(), actor, c.Param("order_no"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Read(c, payload)
}

// Update changes order statuses and shipping details.
// PATCH /api/v1/admin/orders/:order_no
func (h *OrderHandler) Update(c *gin.Context) {
	actor, ok := h.currentActor(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	key, err := bindMutation(c, &req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.orderService.Update(c.Request.Context(), actor, admin.UpdateOrderInput{
		OrderNo:        c.Param("order_no"),
		Status:         req.Status,
		PaymentStatus:  req.PaymentStatus,
		ShippingStatus: req.ShippingStatus,
		CourierName:    req.CourierName,
		TrackingNo:     req.TrackingNo,
		IssueInvoice:   req.IssueInvoice,
		MarkDelivered:  req.MarkDelivered,
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Result(c, result)
}
