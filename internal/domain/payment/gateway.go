// internal/domain/payment/gateway.go
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/qmart/storefront/internal/config"
	"github.com/qmart/storefront/internal/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// RemoteOrder is the payable order created at the gateway before the customer pays
type RemoteOrder struct {
	Gateway  string `json:"gateway"`
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	KeyID    string `json:"key_id,omitempty"`        // Public key the client checkout widget needs
	Secret   string `json:"client_secret,omitempty"` // Client secret for gateways that confirm on the client
}

// Proof is what the client returns after paying online
type Proof struct {
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Signature      string `json:"signature"`
}

// IsZero reports whether no proof fields were supplied
func (p *Proof) IsZero() bool {
	return p == nil || (p.GatewayOrderID == "" && p.PaymentID == "" && p.Signature == "")
}

// Gateway creates payable orders and verifies payments server-side.
// VerifyPayment succeeds only when the proof is authentic and the gateway order was
// created for exactly amount minor units.
type Gateway interface {
	Name() string
	CreateRemoteOrder(ctx context.Context, amount int64, currency, receipt string) (*RemoteOrder, error)
	VerifyPayment(ctx context.Context, gatewayOrderID, paymentID, signature string, amount int64) (bool, error)
}

// NewGateway builds the gateway selected by PAYMENT_PROVIDER
func NewGateway(cfg *config.Config, logger *logrus.Logger) (Gateway, error) {
	var gw Gateway
	switch cfg.Payment.Provider {
	case config.ProviderRazorpay:
		gw = NewRazorpayGateway(cfg.Payment.Razorpay, cfg.Payment.Timeout, logger)
	case config.ProviderStripe:
		gw = NewStripeGateway(cfg.Payment.Stripe, cfg.Payment.Timeout, logger)
	default:
		return nil, fmt.Errorf("unsupported payment provider: %s", cfg.Payment.Provider)
	}
	return Instrument(gw), nil
}

// Instrument wraps a gateway with latency and verification metrics
func Instrument(gw Gateway) Gateway {
	return &instrumented{next: gw}
}

type instrumented struct {
	next Gateway
}

func (i *instrumented) Name() string {
	return i.next.Name()
}

func (i *instrumented) CreateRemoteOrder(ctx context.Context, amount int64, currency, receipt string) (*RemoteOrder, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayLatency.WithLabelValues(i.next.Name(), "create_order").Observe(time.Since(start).Seconds())
	}()
	return i.next.CreateRemoteOrder(ctx, amount, currency, receipt)
}

func (i *instrumented) VerifyPayment(ctx context.Context, gatewayOrderID, paymentID, signature string, amount int64) (bool, error) {
	start := time.Now()
	ok, err := i.next.VerifyPayment(ctx, gatewayOrderID, paymentID, signature, amount)
	metrics.GatewayLatency.WithLabelValues(i.next.Name(), "verify").Observe(time.Since(start).Seconds())

	result := "verified"
	switch {
	case err != nil:
		result = "error"
	case !ok:
		result = "rejected"
	}
	metrics.PaymentVerificationsTotal.WithLabelValues(i.next.Name(), result).Inc()
	return ok, err
}
