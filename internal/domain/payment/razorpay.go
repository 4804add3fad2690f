// internal/domain/payment/razorpay.go
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/qmart/storefront/internal/config"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const razorpayName = "razorpay"

// RazorpayGateway talks to the Razorpay orders API and verifies checkout signatures
type RazorpayGateway struct {
	keyID      string
	keySecret  string
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Logger
}

// razorpayOrder is the subset of the orders API response we use
type razorpayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// NewRazorpayGateway creates a new Razorpay gateway
func NewRazorpayGateway(cfg config.RazorpayConfig, timeout time.Duration, logger *logrus.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   cfg.BaseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Name returns the gateway identifier stored on orders
func (r *RazorpayGateway) Name() string {
	return razorpayName
}

// CreateRemoteOrder creates a Razorpay order for amount paise
func (r *RazorpayGateway) CreateRemoteOrder(ctx context.Context, amount int64, currency, receipt string) (*RemoteOrder, error) {
	body, err := r.makeAPICall(ctx, http.MethodPost, "/orders", createOrderRequest{
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return nil, err
	}

	var created razorpayOrder
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, apperror.Internal("failed to parse Razorpay order response", err)
	}

	r.logger.WithFields(logrus.Fields{
		"gateway_order_id": created.ID,
		"amount":           created.Amount,
	}).Info("Razorpay order created")

	return &RemoteOrder{
		Gateway:  razorpayName,
		ID:       created.ID,
		Amount:   created.Amount,
		Currency: created.Currency,
		Receipt:  created.Receipt,
		KeyID:    r.keyID,
	}, nil
}

// VerifyPayment checks the checkout signature locally, then fetches the Razorpay order
// to confirm it was raised for amount paise.
func (r *RazorpayGateway) VerifyPayment(ctx context.Context, gatewayOrderID, paymentID, signature string, amount int64) (bool, error) {
	if gatewayOrderID == "" || paymentID == "" || signature == "" {
		return false, nil
	}

	expected := Sign(r.keySecret, gatewayOrderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return false, nil
	}

	body, err := r.makeAPICall(ctx, http.MethodGet, "/orders/"+url.PathEscape(gatewayOrderID), nil)
	if err != nil {
		return false, err
	}

	var remote razorpayOrder
	if err := json.Unmarshal(body, &remote); err != nil {
		return false, apperror.Internal("failed to parse Razorpay order response", err)
	}

	if remote.Amount != amount {
		r.logger.WithFields(logrus.Fields{
			"gateway_order_id": gatewayOrderID,
			"paid_amount":      remote.Amount,
			"order_amount":     amount,
		}).Warn("Razorpay order amount does not match the order total")
		return false, nil
	}
	return true, nil
}

// Sign computes the Razorpay checkout signature: hex(HMAC-SHA256(secret, orderID|paymentID))
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// makeAPICall makes HTTP calls to Razorpay API
func (r *RazorpayGateway) makeAPICall(ctx context.Context, method, endpoint string, data any) ([]byte, error) {
	var reqBody []byte
	if data != nil {
		var err error
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, apperror.GatewayUnavailable("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperror.GatewayUnavailable("failed to read payment gateway response", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, apperror.GatewayUnavailable(
			fmt.Sprintf("payment gateway returned status %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		r.logger.WithFields(logrus.Fields{
			"status":   resp.StatusCode,
			"endpoint": endpoint,
		}).Error("Razorpay API call rejected")
		return nil, apperror.Internal(
			fmt.Sprintf("payment gateway rejected request with status %d: %s", resp.StatusCode, respBody), nil)
	}

	return respBody, nil
}
