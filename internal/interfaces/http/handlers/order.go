// internal/interfaces/http/handlers/order.go
package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qmart/storefront/internal/domain/order"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orderService *order.Service
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *order.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// GetOrders handles GET /orders (user's own orders, newest first)
func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	orders, err := h.orderService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Orders retrieved successfully",
		"data":    orders,
	})
}

// GetOrder handles GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id", "order ID")
	if !ok {
		return
	}

	o, err := h.orderService.Get(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved successfully",
		"data":    o,
	})
}

// CancelOrder handles PUT /orders/:id/cancel and DELETE /orders/:id
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id", "order ID")
	if !ok {
		return
	}

	o, err := h.orderService.CancelOrder(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled successfully",
		"data":    o,
	})
}

// ReturnOrder handles PUT /orders/:id/return
func (h *OrderHandler) ReturnOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id", "order ID")
	if !ok {
		return
	}

	req, ok := bindReturnRequest(c)
	if !ok {
		return
	}

	o, err := h.orderService.ReturnOrder(c.Request.Context(), userID, orderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order returned successfully",
		"data":    o,
	})
}

// ReturnItem handles PUT /orders/:id/items/:itemId/return
func (h *OrderHandler) ReturnItem(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id", "order ID")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId", "item ID")
	if !ok {
		return
	}

	req, ok := bindReturnRequest(c)
	if !ok {
		return
	}

	o, err := h.orderService.ReturnItem(c.Request.Context(), userID, orderID, itemID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item returned successfully",
		"data":    o,
	})
}

// MarkDelivered handles PUT /admin/orders/:id/deliver
func (h *OrderHandler) MarkDelivered(c *gin.Context) {
	orderID, ok := idParam(c, "id", "order ID")
	if !ok {
		return
	}

	o, err := h.orderService.MarkDelivered(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order marked as delivered",
		"data":    o,
	})
}

// bindReturnRequest accepts an empty body as a return without a reason
func bindReturnRequest(c *gin.Context) (order.ReturnRequest, bool) {
	var req order.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondInvalidRequest(c, err)
		return req, false
	}
	return req, true
}
