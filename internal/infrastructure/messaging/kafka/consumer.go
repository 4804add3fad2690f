// internal/infrastructure/messaging/kafka/consumer.go
package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// maxRetryDelay caps the backoff between attempts at one message
const maxRetryDelay = 30 * time.Second

// MessageHandler processes one message. A nil return commits the message; an error
// means the message is retried, so permanent failures should be logged and swallowed.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads a topic as part of a consumer group
type Consumer struct {
	reader     messageReader
	topic      string
	retryDelay time.Duration
	logger     *logrus.Logger
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &Consumer{reader: reader, topic: topic, retryDelay: time.Second, logger: logger}
}

// StartConsuming feeds messages to handler until ctx is cancelled.
// A message whose handler fails is retried with backoff, and nothing after it is fetched
// until it succeeds, so a later commit can never skip it.
func (c *Consumer) StartConsuming(ctx context.Context, handler MessageHandler) error {
	c.logger.WithField("topic", c.topic).Info("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.WithField("topic", c.topic).Info("Kafka consumer stopped")
				return nil
			}
			c.logger.WithError(err).Warn("Error fetching message")
			if !sleep(ctx, c.retryDelay) {
				return nil
			}
			continue
		}

		fields := logrus.Fields{"topic": msg.Topic, "partition": msg.Partition, "offset": msg.Offset}
		if !c.handle(ctx, handler, msg, fields) {
			c.logger.WithFields(fields).Info("Kafka consumer stopped before message was handled")
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.WithError(err).WithFields(fields).Warn("Error committing message")
		}
	}
}

// handle runs handler until it succeeds. It returns false if ctx ends first.
func (c *Consumer) handle(ctx context.Context, handler MessageHandler, msg kafka.Message, fields logrus.Fields) bool {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return true
		}

		c.logger.WithError(err).WithFields(fields).WithField("attempt", attempt).Error("Error handling message")
		if !sleep(ctx, delay) {
			return false
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
