// internal/domain/payment/stripe.go
package payment

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/qmart/storefront/internal/config"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const stripeName = "stripe"

// intentAPI is the part of the PaymentIntents client the gateway uses
type intentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway uses PaymentIntents as remote orders
type StripeGateway struct {
	intents intentAPI
	logger  *logrus.Logger
}

// NewStripeGateway creates a Stripe gateway with its own API key. Calls are bounded by timeout.
func NewStripeGateway(cfg config.StripeConfig, timeout time.Duration, logger *logrus.Logger) *StripeGateway {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		MaxNetworkRetries: stripe.Int64(0),
	})

	return &StripeGateway{
		intents: &paymentintent.Client{
			B:   backend,
			Key: cfg.SecretKey,
		},
		logger: logger,
	}
}

// Name returns the gateway identifier stored on orders
func (s *StripeGateway) Name() string {
	return stripeName
}

// CreateRemoteOrder creates a PaymentIntent for amount in the currency's minor unit
func (s *StripeGateway) CreateRemoteOrder(ctx context.Context, amount int64, currency, receipt string) (*RemoteOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(strings.ToLower(currency)),
	}
	params.Context = ctx
	params.AddMetadata("receipt", receipt)

	intent, err := s.intents.New(params)
	if err != nil {
		return nil, classifyStripeError("failed to create payment intent", err)
	}

	s.logger.WithFields(logrus.Fields{
		"gateway_order_id": intent.ID,
		"amount":           intent.Amount,
	}).Info("Stripe payment intent created")

	return &RemoteOrder{
		Gateway:  stripeName,
		ID:       intent.ID,
		Amount:   intent.Amount,
		Currency: strings.ToUpper(string(intent.Currency)),
		Receipt:  receipt,
		Secret:   intent.ClientSecret,
	}, nil
}

// VerifyPayment retrieves the intent server-side. The payment must have succeeded for amount,
// and paymentID must name either the intent or its latest charge. signature is unused.
func (s *StripeGateway) VerifyPayment(ctx context.Context, gatewayOrderID, paymentID, _ string, amount int64) (bool, error) {
	if gatewayOrderID == "" || paymentID == "" {
		return false, nil
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")

	intent, err := s.intents.Get(gatewayOrderID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, classifyStripeError("failed to retrieve payment intent", err)
	}

	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return false, nil
	}
	if intent.Amount != amount {
		s.logger.WithFields(logrus.Fields{
			"gateway_order_id": intent.ID,
			"paid_amount":      intent.Amount,
			"order_amount":     amount,
		}).Warn("Stripe payment amount does not match the order total")
		return false, nil
	}
	if paymentID == intent.ID {
		return true, nil
	}
	return intent.LatestCharge != nil && intent.LatestCharge.ID == paymentID, nil
}

// classifyStripeError maps client errors to internal failures and everything else to GatewayUnavailable
func classifyStripeError(message string, err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500 &&
		stripeErr.HTTPStatusCode != http.StatusTooManyRequests {
		return apperror.Internal(message, err)
	}
	return apperror.GatewayUnavailable(message, err)
}
