// Package amqp ingests raw network events published by the health-check
// and anomaly producers, feeding them into the delivery pipeline.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cartographer-notify/internal/entity"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventProcessor is the pipeline entry point the consumer feeds.
type EventProcessor interface {
	Process(ctx context.Context, event entity.NetworkEvent) (*entity.DeliveryReport, error)
}

type Config struct {
	URL            string
	Queue          string
	ConnectionName string
	ReconnectDelay time.Duration
}

// Consumer is a long-lived AMQP subscriber with a reconnect loop. Bad
// payloads are rejected without requeue; processing errors requeue the
// delivery once via the broker's redelivery flag.
type Consumer struct {
	cfg       Config
	processor EventProcessor
	log       *zap.Logger
}

func NewConsumer(cfg Config, processor EventProcessor, log *zap.Logger) *Consumer {
	return &Consumer{
		cfg:       cfg,
		processor: processor,
		log:       log,
	}
}

// Run blocks until ctx is cancelled, reconnecting on broker failures.
func (c *Consumer) Run(ctx context.Context) error {
	const op = "amqp.Consumer.Run"

	for {
		if err := c.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("amqp connection lost, reconnecting",
				zap.String("op", op),
				zap.Duration("delay", c.cfg.ReconnectDelay),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	const op = "amqp.Consumer.consume"

	conn, err := amqp091.DialConfig(c.cfg.URL, amqp091.Config{
		Properties: amqp091.Table{"connection_name": c.cfg.ConnectionName},
	})
	if err != nil {
		return fmt.Errorf("%s: dial: %w", op, err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("%s: channel: %w", op, err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%s: queue declare: %w", op, err)
	}

	deliveries, err := ch.Consume(c.cfg.Queue, c.cfg.ConnectionName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: consume: %w", op, err)
	}

	c.log.Info("amqp consumer started",
		zap.String("op", op),
		zap.String("queue", c.cfg.Queue),
	)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg amqp091.Delivery) {
	const op = "amqp.Consumer.handle"

	var event entity.NetworkEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.log.Error("unmarshal event failed",
			zap.String("op", op),
			zap.Error(err),
		)
		_ = msg.Reject(false)
		return
	}

	if _, err := c.processor.Process(ctx, event); err != nil {
		c.log.Error("event processing failed",
			zap.String("op", op),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		_ = msg.Nack(false, !msg.Redelivered)
		return
	}

	_ = msg.Ack(false)
}
