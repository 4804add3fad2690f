// internal/worker/fulfillment.go
package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/qmart/storefront/internal/domain/order"
	"github.com/qmart/storefront/internal/infrastructure/messaging/kafka"
	"github.com/qmart/storefront/internal/pkg/apperror"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// DeliveryEventType is the only fulfillment event the storefront acts on
const DeliveryEventType = "shipment.delivered"

// FulfillmentEvent is a message on the fulfillment topic
type FulfillmentEvent struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	OrderID uint   `json:"order_id"`
}

// Deliverer applies a delivery to an order
type Deliverer interface {
	MarkDelivered(ctx context.Context, orderID uint) (*order.Order, error)
}

// FulfillmentWorker marks orders delivered when the fulfillment system reports a delivery
type FulfillmentWorker struct {
	consumer  *kafka.Consumer
	deliverer Deliverer
	logger    *logrus.Logger
}

// NewFulfillmentWorker creates a new fulfillment worker
func NewFulfillmentWorker(consumer *kafka.Consumer, deliverer Deliverer, logger *logrus.Logger) *FulfillmentWorker {
	return &FulfillmentWorker{
		consumer:  consumer,
		deliverer: deliverer,
		logger:    logger,
	}
}

// Start blocks until ctx is cancelled
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting fulfillment worker...")
	return w.consumer.StartConsuming(ctx, w.HandleMessage)
}

// Stop stops the worker
func (w *FulfillmentWorker) Stop() error {
	w.logger.Info("Stopping fulfillment worker...")
	return w.consumer.Close()
}

// HandleMessage applies one fulfillment message. Messages that can never succeed
// (malformed, unknown order, order no longer pending) are logged and acknowledged.
func (w *FulfillmentWorker) HandleMessage(ctx context.Context, msg kafkago.Message) error {
	var event FulfillmentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.WithError(err).WithField("offset", msg.Offset).Warn("Skipping malformed fulfillment message")
		return nil
	}

	fields := logrus.Fields{"event_id": event.EventID, "type": event.Type, "order_id": event.OrderID}
	if event.Type != DeliveryEventType {
		w.logger.WithFields(fields).Debug("Ignoring fulfillment event")
		return nil
	}

	if _, err := w.deliverer.MarkDelivered(ctx, event.OrderID); err != nil {
		return w.rejected(err, fields)
	}
	w.logger.WithFields(fields).Info("Order delivered")
	return nil
}

func (w *FulfillmentWorker) rejected(err error, fields logrus.Fields) error {
	switch apperror.KindOf(err) {
	case apperror.KindNotFound, apperror.KindStateConflict:
		w.logger.WithError(err).WithFields(fields).Warn("Fulfillment event rejected")
		return nil
	default:
		return fmt.Errorf("failed to mark order %v delivered: %w", fields["order_id"], err)
	}
}
