// Package service provides the RabbitMQ publisher for booking events.
// Publish errors are logged and returned so callers can treat delivery as
// best effort without interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/movie-booking/internal/queue"
)

// Publisher writes persistent JSON messages to the durable booking queues.
// It dials per publish; booking traffic is low and this keeps no broker
// state alive between requests.
type Publisher struct {
	URL    string
	Logger *slog.Logger
}

// NewPublisher returns a publisher for url.
func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{URL: url, Logger: logger}
}

// PublishBookingConfirmed publishes ev to booking.confirmed.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return p.publish(ctx, queue.BookingConfirmedQueue, ev)
}

// PublishBookingCancelled publishes ev to booking.cancelled.
func (p *Publisher) PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
	return p.publish(ctx, queue.BookingCancelledQueue, ev)
}

func (p *Publisher) publish(ctx context.Context, queueName string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	conn, err := amqp.Dial(p.URL)
	if err != nil {
		p.Logger.Warn("rabbitmq: dial failed", slog.String("queue", queueName), slog.Any("err", err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Logger.Warn("rabbitmq: channel open failed", slog.Any("err", err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.Logger.Warn("rabbitmq: queue declare failed", slog.String("queue", queueName), slog.Any("err", err))
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.Logger.Warn("rabbitmq: publish failed", slog.String("queue", queueName), slog.Any("err", err))
		return err
	}
	return nil
}
