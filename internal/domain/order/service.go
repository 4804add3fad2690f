// internal/domain/order/service.go
package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/qmart/storefront/internal/pkg/apperror"
	"github.com/qmart/storefront/internal/pkg/metrics"
	"github.com/qmart/storefront/internal/pkg/sanitize"
	"github.com/sirupsen/logrus"
)

// Mutation changes an order loaded under lock. It reports whether anything changed;
// an unchanged order is not written back.
type Mutation func(o *Order) (bool, error)

// Repository persists orders. Update serialises mutations per order ID.
// FindByID and Update return an ORDER_NOT_FOUND error for unknown IDs.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uint) (*Order, error)
	ListByUser(ctx context.Context, userID uint) ([]Order, error)
	Update(ctx context.Context, id uint, fn Mutation) (*Order, error)
	// ExistsByGatewayOrderID reports whether any order already carries the gateway order.
	// Create rejects a second order for the same gateway order with PaymentReusedError.
	ExistsByGatewayOrderID(ctx context.Context, gatewayOrderID string) (bool, error)
}

// NotFoundError builds the error repositories return for an unknown order
func NotFoundError(id uint) error {
	return apperror.NotFound(apperror.CodeOrderNotFound, fmt.Sprintf("order %d not found", id))
}

// PaymentReusedError builds the error for a gateway payment that already paid for another order
func PaymentReusedError(gatewayOrderID string) error {
	return apperror.PaymentVerificationFailed(
		fmt.Sprintf("payment for gateway order %s has already been used", gatewayOrderID))
}

// ReturnRequest carries the reason for a return
type ReturnRequest struct {
	Reason string `json:"reason"`
}

var validTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered: {OrderStatusReturned},
}

// CanTransition reports whether the order state machine allows from -> to
func CanTransition(from, to OrderStatus) bool {
	for _, status := range validTransitions[from] {
		if status == to {
			return true
		}
	}
	return false
}

// Service handles order business logic
type Service struct {
	repo      Repository
	publisher EventPublisher
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a new order service
func NewService(repo Repository, publisher EventPublisher, logger *logrus.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new Pending order. Amount must equal the sum of the frozen item lines.
func (s *Service) Create(ctx context.Context, o *Order) error {
	if len(o.Items) == 0 {
		return apperror.Validation(apperror.CodeEmptyCart, "items", "an order needs at least one item")
	}
	if total := o.ItemsTotal(); total != o.Amount {
		return apperror.Internal(fmt.Sprintf("order amount %d does not match items total %d", o.Amount, total), nil)
	}

	now := s.now()
	o.OrderNumber = GenerateOrderNumber(now)
	o.Status = OrderStatusPending
	if o.Currency == "" {
		o.Currency = "INR"
	}
	o.CreatedAt = now
	o.UpdatedAt = now
	for i := range o.Items {
		o.Items[i].Status = ItemStatusPending
		o.Items[i].CreatedAt = now
		o.Items[i].UpdatedAt = now
	}
	o.StatusHistory = nil
	o.addStatusHistory("", OrderStatusPending, "Order placed", now)

	if err := s.repo.Create(ctx, o); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	metrics.OrdersPlacedTotal.WithLabelValues(string(o.PaymentMode)).Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"user_id":      o.UserID,
		"amount":       o.Amount,
		"payment_mode": o.PaymentMode,
	}).Info("Order placed")

	s.publish(ctx, NewEvent(EventOrderPlaced, o, now))
	return nil
}

// Get retrieves an order owned by the user
func (s *Service) Get(ctx context.Context, userID, orderID uint) (*Order, error) {
	o, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, NotFoundError(orderID)
	}
	return o, nil
}

// PaymentUsed reports whether an order already consumed the gateway order
func (s *Service) PaymentUsed(ctx context.Context, gatewayOrderID string) (bool, error) {
	if gatewayOrderID == "" {
		return false, nil
	}
	used, err := s.repo.ExistsByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return false, fmt.Errorf("failed to look up gateway order: %w", err)
	}
	return used, nil
}

// ListByUser returns the user's orders, most recent first
func (s *Service) ListByUser(ctx context.Context, userID uint) ([]Order, error) {
	orders, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}
	return orders, nil
}

// CancelOrder cancels a Pending order. Cancelling a cancelled order is a no-op.
// Deleting an order is the same operation.
func (s *Service) CancelOrder(ctx context.Context, userID, orderID uint) (*Order, error) {
	var from OrderStatus
	o, err := s.repo.Update(ctx, orderID, func(o *Order) (bool, error) {
		if o.UserID != userID {
			return false, NotFoundError(orderID)
		}

		from = o.Status
		switch o.Status {
		case OrderStatusCancelled:
			return false, nil
		case OrderStatusDelivered:
			return false, apperror.StateConflict(apperror.CodeCannotCancelDelivered,
				string(o.Status), string(OrderStatusCancelled), "delivered orders cannot be cancelled, return them instead")
		case OrderStatusPending:
			now := s.now()
			o.Status = OrderStatusCancelled
			o.CancelledAt = &now
			o.UpdatedAt = now
			o.addStatusHistory(from, OrderStatusCancelled, "Cancelled by customer", now)
			return true, nil
		default:
			return false, invalidTransition(o.Status, OrderStatusCancelled)
		}
	})
	if err != nil {
		return nil, err
	}

	if from != OrderStatusCancelled {
		s.transitioned(ctx, EventOrderCancelled, o, from, "")
	}
	return o, nil
}

// ReturnOrder returns a delivered order and every item in it
func (s *Service) ReturnOrder(ctx context.Context, userID, orderID uint, reason string) (*Order, error) {
	reason = sanitize.Text(reason)

	o, err := s.repo.Update(ctx, orderID, func(o *Order) (bool, error) {
		if o.UserID != userID {
			return false, NotFoundError(orderID)
		}
		if !o.CanBeReturned() {
			return false, invalidTransition(o.Status, OrderStatusReturned)
		}

		now := s.now()
		o.Status = OrderStatusReturned
		o.ReturnedAt = &now
		o.UpdatedAt = now
		for i := range o.Items {
			item := &o.Items[i]
			if item.Status == ItemStatusReturned {
				continue
			}
			item.Status = ItemStatusReturned
			item.ReturnReason = reason
			item.ReturnedAt = &now
			item.UpdatedAt = now
		}
		o.addStatusHistory(OrderStatusDelivered, OrderStatusReturned, returnComment("Order returned", reason), now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	s.transitioned(ctx, EventOrderReturned, o, OrderStatusDelivered, reason)
	return o, nil
}

// ReturnItem returns a single item of a delivered order. The order status is never changed,
// even when every item ends up returned.
func (s *Service) ReturnItem(ctx context.Context, userID, orderID, itemID uint, reason string) (*Order, error) {
	reason = sanitize.Text(reason)
	if reason == "" {
		return nil, apperror.Validation(apperror.CodeReasonRequired, "reason", "a return reason is required")
	}

	o, err := s.repo.Update(ctx, orderID, func(o *Order) (bool, error) {
		if o.UserID != userID {
			return false, NotFoundError(orderID)
		}

		item := o.Item(itemID)
		switch {
		case item == nil:
			return false, apperror.NotFound(apperror.CodeItemNotFound, fmt.Sprintf("item %d not found in order %d", itemID, orderID))
		case item.Status == ItemStatusReturned:
			return false, apperror.StateConflict(apperror.CodeAlreadyReturned,
				string(item.Status), string(ItemStatusReturned), "item has already been returned")
		case o.Status != OrderStatusDelivered:
			return false, apperror.StateConflict(apperror.CodeOrderNotDelivered,
				string(o.Status), string(ItemStatusReturned), "only delivered orders accept item returns")
		}

		now := s.now()
		item.Status = ItemStatusReturned
		item.ReturnReason = reason
		item.ReturnedAt = &now
		item.UpdatedAt = now
		o.UpdatedAt = now
		o.addStatusHistory(o.Status, o.Status, returnComment(fmt.Sprintf("Item %d returned", itemID), reason), now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	metrics.ItemReturnsTotal.Inc()
	event := NewEvent(EventItemReturned, o, s.now())
	event.ItemID = itemID
	event.Reason = reason
	s.publish(ctx, event)
	return o, nil
}

// MarkDelivered applies a fulfillment delivery to the order and all its items.
// Delivering an already delivered order is a no-op.
func (s *Service) MarkDelivered(ctx context.Context, orderID uint) (*Order, error) {
	var from OrderStatus
	o, err := s.repo.Update(ctx, orderID, func(o *Order) (bool, error) {
		from = o.Status
		if o.Status == OrderStatusDelivered {
			return false, nil
		}
		if !CanTransition(o.Status, OrderStatusDelivered) {
			return false, invalidTransition(o.Status, OrderStatusDelivered)
		}

		now := s.now()
		o.Status = OrderStatusDelivered
		o.DeliveredAt = &now
		o.UpdatedAt = now
		for i := range o.Items {
			o.Items[i].Status = ItemStatusDelivered
			o.Items[i].UpdatedAt = now
		}
		o.addStatusHistory(from, OrderStatusDelivered, "Delivered", now)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	if from != OrderStatusDelivered {
		s.transitioned(ctx, EventOrderDelivered, o, from, "")
	}
	return o, nil
}

func (s *Service) transitioned(ctx context.Context, eventType EventType, o *Order, from OrderStatus, reason string) {
	metrics.OrderTransitionsTotal.WithLabelValues(string(from), string(o.Status)).Inc()
	s.logger.WithFields(logrus.Fields{
		"order_id": o.ID,
		"user_id":  o.UserID,
		"from":     from,
		"to":       o.Status,
	}).Info("Order status changed")

	event := NewEvent(eventType, o, s.now())
	event.Reason = reason
	s.publish(ctx, event)
}

// publish never fails the caller; the change is already committed
func (s *Service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": event.Type,
			"order_id":   event.OrderID,
		}).Warn("Failed to publish order event")
	}
}

func invalidTransition(from, to OrderStatus) error {
	return apperror.StateConflict(apperror.CodeInvalidTransition, string(from), string(to),
		fmt.Sprintf("cannot move order from %s to %s", from, to))
}

func returnComment(prefix, reason string) string {
	if reason == "" {
		return prefix
	}
	return prefix + ": " + reason
}

// IsNotFound reports whether err means the order does not exist for the caller
func IsNotFound(err error) bool {
	return errors.Is(err, apperror.ErrOrderNotFound)
}
