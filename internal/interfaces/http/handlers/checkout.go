// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qmart/storefront/internal/domain/checkout"
	"github.com/qmart/storefront/internal/domain/order"
)

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

// GetCheckout handles GET /checkout
func (h *CheckoutHandler) GetCheckout(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	snapshot, err := h.checkoutService.Prepare(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary retrieved successfully",
		"data":    snapshot,
	})
}

// CreatePaymentOrder handles POST /checkout/payment-order
func (h *CheckoutHandler) CreatePaymentOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	remote, err := h.checkoutService.CreatePaymentOrder(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment order created successfully",
		"data":    remote,
	})
}

// PlaceOrder handles POST /checkout/orders
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	mode, known := order.ParsePaymentMode(req.PaymentMode)
	if !known {
		// Let the coordinator reject it with its own error code
		mode = order.PaymentMode(req.PaymentMode)
	}

	placed, err := h.checkoutService.PlaceOrder(c.Request.Context(), checkout.PlaceOrderInput{
		UserID:      userID,
		AddressID:   req.AddressID,
		PaymentMode: mode,
		Proof:       req.Payment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"data":    placed,
	})
}
