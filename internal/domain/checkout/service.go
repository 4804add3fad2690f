// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qmart/storefront/internal/domain/cart"
	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/domain/payment"
	"github.com/qmart/storefront/internal/domain/user"
	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/qmart/storefront/internal/pkg/metrics"
	"github.com/qmart/storefront/internal/pkg/tracing"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CartStore is the part of the cart service checkout drives
type CartStore interface {
	Get(ctx context.Context, userID uint) (*cart.View, error)
	Checkout(ctx context.Context, userID uint, fn func(view *cart.View) error) error
}

// AddressBook resolves a user's saved address
type AddressBook interface {
	Get(ctx context.Context, userID, addressID uint) (*user.Address, error)
}

// Ledger persists new orders
type Ledger interface {
	Create(ctx context.Context, o *order.Order) error
	PaymentUsed(ctx context.Context, gatewayOrderID string) (bool, error)
}

// SnapshotItem is a cart line with its price frozen
type SnapshotItem struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
	BasePrice int64   `json:"base_price"`
	Offer     float64 `json:"offer"`
	UnitPrice int64   `json:"unit_price"`
	LineTotal int64   `json:"line_total"`
	Savings   int64   `json:"savings"`
}

// Snapshot is the priced cart a customer is about to order
type Snapshot struct {
	Items   []SnapshotItem `json:"items"`
	Gross   int64          `json:"gross"`
	Total   int64          `json:"total"`
	Savings int64          `json:"savings"`
}

// PlaceOrderInput carries everything needed to turn a cart into an order
type PlaceOrderInput struct {
	UserID      uint
	AddressID   uint
	PaymentMode order.PaymentMode
	Proof       *payment.Proof
}

// PlaceOrderRequest represents the place order request body
type PlaceOrderRequest struct {
	AddressID   uint           `json:"address_id" binding:"required"`
	PaymentMode string         `json:"payment_mode" binding:"required"`
	Payment     *payment.Proof `json:"payment"`
}

// Service coordinates cart, address book, payment gateway and order ledger
type Service struct {
	carts     CartStore
	addresses AddressBook
	gateway   payment.Gateway
	ledger    Ledger
	currency  string
	logger    *logrus.Logger
}

// NewService creates a new checkout service
func NewService(carts CartStore, addresses AddressBook, gateway payment.Gateway, ledger Ledger, currency string, logger *logrus.Logger) *Service {
	return &Service{
		carts:     carts,
		addresses: addresses,
		gateway:   gateway,
		ledger:    ledger,
		currency:  currency,
		logger:    logger,
	}
}

// Prepare prices the user's cart for review before ordering
func (s *Service) Prepare(ctx context.Context, userID uint) (*Snapshot, error) {
	view, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return snapshotOf(view)
}

// CreatePaymentOrder creates a gateway order for the current cart total
func (s *Service) CreatePaymentOrder(ctx context.Context, userID uint) (*payment.RemoteOrder, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.CreatePaymentOrder")
	defer span.End()

	snapshot, err := s.Prepare(ctx, userID)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("cart-%d-%d", userID, time.Now().Unix())
	remote, err := s.gateway.CreateRemoteOrder(ctx, snapshot.Total, s.currency, receipt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create remote order failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("payment.gateway", s.gateway.Name()))
	return remote, nil
}

// PlaceOrder verifies payment when paying online, then persists the order and empties the cart.
// Nothing is persisted unless verification succeeds.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*order.Order, error) {
	ctx, span := tracing.StartSpan(ctx, "checkout.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", int64(in.UserID)),
		attribute.String("payment.mode", string(in.PaymentMode)),
	)

	placed, err := s.placeOrder(ctx, in)
	if err != nil {
		code := apperror.CodeInternal
		if appErr, ok := apperror.As(err); ok {
			code = appErr.Code
		}
		metrics.OrdersFailedTotal.WithLabelValues(string(code)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		return nil, err
	}

	span.SetAttributes(attribute.Int64("order.id", int64(placed.ID)))
	return placed, nil
}

func (s *Service) placeOrder(ctx context.Context, in PlaceOrderInput) (*order.Order, error) {
	if in.PaymentMode != order.PaymentModeOnline && in.PaymentMode != order.PaymentModeCashOnDelivery {
		return nil, apperror.Validation(apperror.CodeInvalidPaymentMode, "payment_mode",
			fmt.Sprintf("unsupported payment mode %q", in.PaymentMode))
	}

	address, err := s.addresses.Get(ctx, in.UserID, in.AddressID)
	if err != nil {
		return nil, err
	}

	var placed *order.Order
	err = s.carts.Checkout(ctx, in.UserID, func(view *cart.View) error {
		snapshot, err := snapshotOf(view)
		if err != nil {
			return err
		}

		o := buildOrder(in, address, snapshot)
		if in.PaymentMode == order.PaymentModeOnline {
			if err := s.verify(ctx, in.Proof, snapshot.Total); err != nil {
				return err
			}
			o.Payment = order.PaymentRef{
				Gateway:        s.gateway.Name(),
				GatewayOrderID: in.Proof.GatewayOrderID,
				PaymentID:      in.Proof.PaymentID,
			}
		}

		if err := s.ledger.Create(ctx, o); err != nil {
			return err
		}
		placed = o
		return nil
	})

	var clearErr *cart.ClearError
	if errors.As(err, &clearErr) {
		// The order exists; a stale cart is recoverable by the customer.
		metrics.CartClearFailuresTotal.Inc()
		s.logger.WithError(clearErr.Err).WithFields(logrus.Fields{
			"user_id":  in.UserID,
			"order_id": placed.ID,
		}).Warn("Order placed but cart could not be cleared")
		err = nil
	}
	if err != nil {
		return nil, err
	}

	return placed, nil
}

// verify accepts a proof only for a gateway order that no other order has consumed
// and that was paid for exactly amount.
func (s *Service) verify(ctx context.Context, proof *payment.Proof, amount int64) error {
	if proof.IsZero() {
		return apperror.Validation(apperror.CodePaymentProofRequired, "payment",
			"online payments need the gateway order id, payment id and signature")
	}

	used, err := s.ledger.PaymentUsed(ctx, proof.GatewayOrderID)
	if err != nil {
		return err
	}
	if used {
		s.logger.WithFields(logrus.Fields{
			"gateway":          s.gateway.Name(),
			"gateway_order_id": proof.GatewayOrderID,
		}).Warn("Payment proof reused")
		return order.PaymentReusedError(proof.GatewayOrderID)
	}

	ok, err := s.gateway.VerifyPayment(ctx, proof.GatewayOrderID, proof.PaymentID, proof.Signature, amount)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"gateway":          s.gateway.Name(),
			"gateway_order_id": proof.GatewayOrderID,
			"amount":           amount,
		}).Warn("Payment verification failed")
		return apperror.PaymentVerificationFailed("payment could not be verified")
	}
	return nil
}

func snapshotOf(view *cart.View) (*Snapshot, error) {
	if len(view.Items) == 0 {
		return nil, apperror.Validation(apperror.CodeEmptyCart, "cart", "cart is empty")
	}

	snapshot := &Snapshot{
		Items:   make([]SnapshotItem, 0, len(view.Items)),
		Gross:   view.Gross,
		Total:   view.Total,
		Savings: view.Savings,
	}
	for _, line := range view.Items {
		if !line.Available {
			return nil, apperror.Validation(apperror.CodeProductUnavailable, "cart",
				fmt.Sprintf("product %d is no longer available", line.ProductID))
		}
		snapshot.Items = append(snapshot.Items, SnapshotItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Image:     line.Image,
			Quantity:  line.Quantity,
			BasePrice: line.UnitPrice,
			Offer:     line.Offer,
			UnitPrice: line.EffectivePrice,
			LineTotal: line.LineTotal,
			Savings:   line.Savings,
		})
	}
	return snapshot, nil
}

func buildOrder(in PlaceOrderInput, address *user.Address, snapshot *Snapshot) *order.Order {
	o := &order.Order{
		UserID:      in.UserID,
		PaymentMode: in.PaymentMode,
		Amount:      snapshot.Total,
		Savings:     snapshot.Savings,
		ShippingAddress: order.ShippingAddress{
			FullName:    address.FullName,
			Phone:       address.Phone,
			AddressLine: address.AddressLine,
			City:        address.City,
			State:       address.State,
			Pincode:     address.Pincode,
		},
		Items: make([]order.OrderItem, 0, len(snapshot.Items)),
	}
	for _, item := range snapshot.Items {
		o.Items = append(o.Items, order.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			BasePrice: item.BasePrice,
			Offer:     item.Offer,
			Price:     item.UnitPrice,
		})
	}
	return o
}
