// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/qmart/storefront/internal/interfaces/http/handlers"
	"github.com/qmart/storefront/internal/interfaces/http/middleware"
	"github.com/qmart/storefront/internal/pkg/auth"
)

// Handlers groups every handler the API mounts
type Handlers struct {
	Product  *handlers.ProductHandler
	Cart     *handlers.CartHandler
	Address  *handlers.UserAddressHandler
	Checkout *handlers.CheckoutHandler
	Order    *handlers.OrderHandler
	Invoice  *handlers.InvoiceHandler
}

// SetupRoutes mounts the API on rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, jwtManager *auth.JWTManager) {
	SetupProductRoutes(rg, h)

	authed := rg.Group("")
	authed.Use(middleware.AuthMiddleware(jwtManager))
	SetupCartRoutes(authed, h)
	SetupAddressRoutes(authed, h)
	SetupCheckoutRoutes(authed, h)
	SetupOrderRoutes(authed, h)
	SetupAdminRoutes(authed, h)
}

// SetupProductRoutes sets up the public catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers) {
	products := rg.Group("/products")
	{
		products.GET("", h.Product.GetProducts)
		products.GET("/:id", h.Product.GetProduct)
	}
}

// SetupCartRoutes sets up cart routes
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers) {
	cart := rg.Group("/cart")
	{
		cart.GET("", h.Cart.GetCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.PUT("/items/:productId", h.Cart.UpdateCartItem)
		cart.DELETE("/items/:productId", h.Cart.RemoveFromCart)
	}
}

// SetupAddressRoutes sets up address book routes
func SetupAddressRoutes(rg *gin.RouterGroup, h *Handlers) {
	addresses := rg.Group("/addresses")
	{
		addresses.GET("", h.Address.GetAddresses)
		addresses.POST("", h.Address.CreateAddress)
		addresses.GET("/:id", h.Address.GetAddress)
		addresses.PUT("/:id", h.Address.UpdateAddress)
		addresses.DELETE("/:id", h.Address.DeleteAddress)
	}
}

// SetupCheckoutRoutes sets up checkout routes
func SetupCheckoutRoutes(rg *gin.RouterGroup, h *Handlers) {
	checkout := rg.Group("/checkout")
	{
		checkout.GET("", h.Checkout.GetCheckout)
		checkout.POST("/payment-order", h.Checkout.CreatePaymentOrder)
		checkout.POST("/orders", h.Checkout.PlaceOrder)
	}
}

// SetupOrderRoutes sets up order related routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.PUT("/:id/cancel", h.Order.CancelOrder)
		orders.DELETE("/:id", h.Order.CancelOrder)
		orders.PUT("/:id/return", h.Order.ReturnOrder)
		orders.PUT("/:id/items/:itemId/return", h.Order.ReturnItem)
		orders.GET("/:id/invoice", h.Invoice.GetInvoice)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.AdminMiddleware())
	{
		admin.PUT("/orders/:id/deliver", h.Order.MarkDelivered)
	}
}
