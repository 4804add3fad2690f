package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qmart/storefront/internal/config"
	"github.com/qmart/storefront/internal/domain/cart"
	"github.com/qmart/storefront/internal/domain/checkout"
	"github.com/qmart/storefront/internal/domain/invoice"
	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/domain/payment"
	"github.com/qmart/storefront/internal/domain/product"
	"github.com/qmart/storefront/internal/domain/user"
	"github.com/qmart/storefront/internal/infrastructure/memory"
	api "github.com/qmart/storefront/internal/interfaces/http"
	"github.com/qmart/storefront/internal/interfaces/http/handlers"
	"github.com/qmart/storefront/internal/interfaces/http/routes"
	"github.com/qmart/storefront/internal/pkg/auth"
	"github.com/qmart/storefront/internal/pkg/lock"
	"github.com/qmart/storefront/internal/pkg/logger"
	"github.com/qmart/storefront/internal/pkg/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGateway struct {
	verified bool
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) CreateRemoteOrder(_ context.Context, amount int64, currency, receipt string) (*payment.RemoteOrder, error) {
	return &payment.RemoteOrder{Gateway: "stub", ID: "order_stub", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *stubGateway) VerifyPayment(context.Context, string, string, string, int64) (bool, error) {
	return g.verified, nil
}

type testAPI struct {
	handler  http.Handler
	jwt      *auth.JWTManager
	gateway  *stubGateway
	dbHealth error
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		App: config.AppConfig{Name: "Q-Mart Storefront", Version: "test", Environment: "test"},
		Server: config.ServerConfig{
			Port:           "0",
			RequestTimeout: 5 * time.Second,
			MaxBodyBytes:   1 << 20,
		},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-long-enough-123",
			AccessTokenExpiry: time.Hour,
		},
	}
	log := logger.Discard()

	catalog := product.NewService(memory.NewProductRepository(
		product.Product{ID: 1, Name: "Basmati Rice 5kg", Price: 20000, Offer: 25, IsActive: true},
		product.Product{ID: 2, Name: "Old Soap", Price: 4500, IsActive: false},
	))
	carts := cart.NewService(memory.NewCartRepository(), catalog, lock.NewKeyedMutex(), log)
	addresses := user.NewAddressService(memory.NewAddressRepository(), log)
	orders := order.NewService(memory.NewOrderRepository(), order.NewLogPublisher(log), log)
	gateway := &stubGateway{verified: true}
	checkouts := checkout.NewService(carts, addresses, gateway, orders, "INR", log)

	ta := &testAPI{jwt: auth.NewJWTManager(cfg), gateway: gateway}
	server := api.NewServer(cfg, api.Dependencies{
		Handlers: &routes.Handlers{
			Product:  handlers.NewProductHandler(catalog),
			Cart:     handlers.NewCartHandler(carts),
			Address:  handlers.NewUserAddressHandler(addresses),
			Checkout: handlers.NewCheckoutHandler(checkouts),
			Order:    handlers.NewOrderHandler(orders),
			Invoice:  handlers.NewInvoiceHandler(orders, invoice.NewRenderer("Q-Mart", ""), pdf.NewService()),
		},
		JWTManager: ta.jwt,
		Checks: map[string]api.HealthCheck{
			"database": func(context.Context) error { return ta.dbHealth },
		},
		Logger: log,
	})
	ta.handler = server.Handler()
	return ta
}

func (a *testAPI) token(t *testing.T, userID uint, admin bool) string {
	t.Helper()
	token, err := a.jwt.GenerateAccessToken(userID, admin)
	require.NoError(t, err)
	return token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)

	var out map[string]any
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "response has no data object: %v", body)
	return d
}

func id(t *testing.T, m map[string]any) uint {
	t.Helper()
	v, ok := m["id"].(float64)
	require.True(t, ok, "missing id in %v", m)
	return uint(v)
}

var asha = user.AddressInput{
	FullName:    "Asha Rao",
	Phone:       "9876543210",
	AddressLine: "12 MG Road",
	City:        "Bengaluru",
	State:       "Karnataka",
	Pincode:     "560001",
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	customer := a.token(t, 7, false)
	stranger := a.token(t, 8, false)
	admin := a.token(t, 1, true)

	w, body := a.do(t, http.MethodPost, "/api/v1/addresses", customer, asha)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	addressID := id(t, data(t, body))

	w, body = a.do(t, http.MethodPost, "/api/v1/cart/items", customer, gin.H{"product_id": 1, "quantity": 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_QUANTITY", body["code"])

	w, body = a.do(t, http.MethodPost, "/api/v1/cart/items", customer, gin.H{"product_id": 2, "quantity": 1})
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PRODUCT_NOT_FOUND", body["code"])

	w, body = a.do(t, http.MethodPost, "/api/v1/cart/items", customer, gin.H{"product_id": 1, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(30000), data(t, body)["total"])

	w, body = a.do(t, http.MethodGet, "/api/v1/checkout", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(30000), data(t, body)["total"])
	assert.Equal(t, float64(10000), data(t, body)["savings"])

	w, body = a.do(t, http.MethodPost, "/api/v1/checkout/orders", customer, gin.H{"address_id": addressID, "payment_mode": "cod"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := data(t, body)
	orderID := id(t, placed)
	assert.Equal(t, "pending", placed["status"])
	assert.Equal(t, float64(30000), placed["amount"])
	items := placed["items"].([]any)
	require.Len(t, items, 1)
	itemID := id(t, items[0].(map[string]any))

	w, body = a.do(t, http.MethodGet, "/api/v1/cart", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, data(t, body)["items"])

	w, body = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", orderID), stranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", body["code"])

	w, _ = a.do(t, http.MethodGet, "/api/v1/orders", customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	itemPath := fmt.Sprintf("/api/v1/orders/%d/items/%d/return", orderID, itemID)
	w, body = a.do(t, http.MethodPut, itemPath, customer, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "REASON_REQUIRED", body["code"])

	w, body = a.do(t, http.MethodPut, itemPath, customer, gin.H{"reason": "damaged"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ORDER_NOT_DELIVERED", body["code"])

	deliverPath := fmt.Sprintf("/api/v1/admin/orders/%d/deliver", orderID)
	w, _ = a.do(t, http.MethodPut, deliverPath, customer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body = a.do(t, http.MethodPut, deliverPath, admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "delivered", data(t, body)["status"])

	w, body = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), customer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CANNOT_CANCEL_DELIVERED", body["code"])
	assert.Equal(t, "delivered", body["current_state"])

	w, _ = a.do(t, http.MethodPut, itemPath, customer, gin.H{"reason": "damaged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, body = a.do(t, http.MethodPut, itemPath, customer, gin.H{"reason": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_RETURNED", body["code"])

	invoicePath := fmt.Sprintf("/api/v1/orders/%d/invoice", orderID)
	w, body = a.do(t, http.MethodGet, invoicePath, customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	doc := data(t, body)
	assert.Equal(t, placed["order_number"], doc["order_number"])
	assert.Equal(t, "Asha Rao", doc["shipping"].(map[string]any)["name"])
	assert.Equal(t, "₹300.00", doc["total"])
	assert.Equal(t, "₹100.00", doc["savings"])

	w, _ = a.do(t, http.MethodGet, invoicePath+"?format=html", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Asha Rao")

	w, body = a.do(t, http.MethodGet, invoicePath+"?format=xml", customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_INPUT", body["code"])
}

func TestCancelPendingOrderOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	customer := a.token(t, 7, false)

	_, body := a.do(t, http.MethodPost, "/api/v1/addresses", customer, asha)
	addressID := id(t, data(t, body))
	_, _ = a.do(t, http.MethodPost, "/api/v1/cart/items", customer, gin.H{"product_id": 1, "quantity": 1})
	_, body = a.do(t, http.MethodPost, "/api/v1/checkout/orders", customer, gin.H{"address_id": addressID, "payment_mode": "cod"})
	orderID := id(t, data(t, body))

	w, body := a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/orders/%d", orderID), customer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", data(t, body)["status"])

	w, body = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/orders/%d/cancel", orderID), customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", data(t, body)["status"])
}

func TestOnlineOrderWithBadProofKeepsCart(t *testing.T) {
	a := newTestAPI(t)
	a.gateway.verified = false
	customer := a.token(t, 7, false)

	_, body := a.do(t, http.MethodPost, "/api/v1/addresses", customer, asha)
	addressID := id(t, data(t, body))
	_, _ = a.do(t, http.MethodPost, "/api/v1/cart/items", customer, gin.H{"product_id": 1, "quantity": 3})

	w, body := a.do(t, http.MethodPost, "/api/v1/checkout/payment-order", customer, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(45000), data(t, body)["amount"])

	w, body = a.do(t, http.MethodPost, "/api/v1/checkout/orders", customer, gin.H{
		"address_id":   addressID,
		"payment_mode": "online",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "PAYMENT_PROOF_REQUIRED", body["code"])

	w, body = a.do(t, http.MethodPost, "/api/v1/checkout/orders", customer, gin.H{
		"address_id":   addressID,
		"payment_mode": "online",
		"payment": gin.H{
			"gateway_order_id": "order_stub",
			"payment_id":       "pay_1",
			"signature":        "forged",
		},
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "PAYMENT_VERIFICATION_FAILED", body["code"])

	w, body = a.do(t, http.MethodPost, "/api/v1/checkout/orders", customer, gin.H{
		"address_id":   addressID,
		"payment_mode": "cheque",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PAYMENT_MODE", body["code"])

	w, body = a.do(t, http.MethodGet, "/api/v1/cart", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data(t, body)["items"], 1)

	w, body = a.do(t, http.MethodGet, "/api/v1/orders", customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["data"])
}

func TestAuthRequired(t *testing.T) {
	a := newTestAPI(t)

	w, _ := a.do(t, http.MethodGet, "/api/v1/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/v1/products", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthAndReadiness(t *testing.T) {
	a := newTestAPI(t)

	w, body := a.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	w, body = a.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["status"])

	a.dbHealth = errors.New("connection refused")
	w, body = a.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "not_ready", body["status"])
	assert.Equal(t, "unavailable", body["checks"].(map[string]any)["database"])
}
