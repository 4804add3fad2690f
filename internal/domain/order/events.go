// internal/domain/order/events.go
package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventType names an order lifecycle event
type EventType string

const (
	EventOrderPlaced    EventType = "order.placed"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderDelivered EventType = "order.delivered"
	EventOrderReturned  EventType = "order.returned"
	EventItemReturned   EventType = "order.item_returned"
)

// Event is published after an order change has been committed
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	OrderID     uint        `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	UserID      uint        `json:"user_id"`
	Status      OrderStatus `json:"status"`
	ItemID      uint        `json:"item_id,omitempty"`
	Amount      int64       `json:"amount"`
	Reason      string      `json:"reason,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
}

// EventPublisher delivers order events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewEvent builds an event for the order's current state
func NewEvent(eventType EventType, o *Order, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		UserID:      o.UserID,
		Status:      o.Status,
		Amount:      o.Amount,
		OccurredAt:  at,
	}
}

// LogPublisher writes events to the application log. Used when no broker is configured.
type LogPublisher struct {
	logger *logrus.Logger
}

// NewLogPublisher creates a new log publisher
func NewLogPublisher(logger *logrus.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
		"status":     event.Status,
	}).Info("Order event")
	return nil
}
