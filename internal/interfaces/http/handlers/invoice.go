// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/qmart/storefront/internal/domain/invoice"
	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/qmart/storefront/internal/pkg/pdf"
)

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	orderService *order.Service
	renderer     *invoice.Renderer
	pdfService   *pdf.Service
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(orderService *order.Service, renderer *invoice.Renderer, pdfService *pdf.Service) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: orderService,
		renderer:     renderer,
		pdfService:   pdfService,
	}
}

// GetInvoice handles GET /orders/:id/invoice?format=json|html|pdf
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	orderID, ok := idParam(c, "id", "order ID")
	if !ok {
		return
	}

	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "html" && format != "pdf" {
		respondError(c, apperror.Validation(apperror.CodeInvalidInput, "format", "format must be json, html or pdf"))
		return
	}

	o, err := h.orderService.Get(c.Request.Context(), userID, orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	doc := h.renderer.Render(o)

	switch format {
	case "html":
		html, err := h.pdfService.RenderHTML(doc)
		if err != nil {
			respondError(c, apperror.Internal("failed to render invoice", err))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)

	case "pdf":
		pdfBuffer, err := h.pdfService.GenerateInvoice(doc)
		if err != nil {
			respondError(c, apperror.Internal("failed to generate invoice", err))
			return
		}

		// Set headers for PDF download
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
		c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))
		c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())

	default:
		c.JSON(http.StatusOK, gin.H{
			"message": "Invoice retrieved successfully",
			"data":    doc,
		})
	}
}
