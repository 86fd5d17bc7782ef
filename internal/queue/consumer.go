package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notifier delivers a confirmation message to the booking's user.
type Notifier interface {
	BookingConfirmed(ev BookingConfirmedEvent) error
}

// Consumer listens to the booking queues and appends one line per event to
// <LogDir>/booking.log, optionally e-mailing the user on confirmation.
type Consumer struct {
	URL      string
	LogDir   string
	Notifier Notifier
	Logger   *slog.Logger

	fileMu sync.Mutex
}

// Run connects, declares both durable queues and consumes until ctx is
// done.  Broker failures trigger reconnects with capped backoff.
func (c *Consumer) Run(ctx context.Context) error {
	logger := c.logger()
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			logger.Warn("booking consumer: dial failed", slog.Any("err", err), slog.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("booking consumer: consume loop ended, reconnecting", slog.Any("err", err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.logger().Warn("booking consumer: set QoS failed", slog.Any("err", err))
	}

	confirmed, err := declareAndConsume(ch, BookingConfirmedQueue)
	if err != nil {
		return err
	}
	cancelled, err := declareAndConsume(ch, BookingCancelledQueue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-confirmed:
			if !ok {
				return errors.New("confirmed deliveries channel closed")
			}
			c.settle(d, c.handleConfirmed(d.Body))
		case d, ok := <-cancelled:
			if !ok {
				return errors.New("cancelled deliveries channel closed")
			}
			c.settle(d, c.handleCancelled(d.Body))
		}
	}
}

func declareAndConsume(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue declare %s: %w", queue, err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("queue consume %s: %w", queue, err)
	}
	return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, err error) {
	if err != nil {
		c.logger().Error("booking consumer: handle message failed", slog.String("queue", d.RoutingKey), slog.Any("err", err))
		_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
		return
	}
	_ = d.Ack(false)
}

func (c *Consumer) handleConfirmed(body []byte) error {
	var ev BookingConfirmedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking confirmed | booking_id=%s | user_id=%s | movie_id=%d | movie=%q | theater=%q | show=%q | total=%d IDR | seats=%s\n",
		ev.ConfirmedAt, ev.BookingID, ev.UserID, ev.MovieID, ev.MovieTitle, ev.Theater,
		strings.TrimSpace(ev.Date+" "+ev.Time), ev.TotalPrice, seatList(ev.Seats))
	if err := c.appendLine(line); err != nil {
		return err
	}
	if c.Notifier != nil && ev.UserEmail != "" {
		// A failed e-mail must not reject an already logged booking.
		if err := c.Notifier.BookingConfirmed(ev); err != nil {
			c.logger().Warn("booking consumer: confirmation e-mail failed",
				slog.String("booking_id", ev.BookingID), slog.Any("err", err))
		}
	}
	return nil
}

func (c *Consumer) handleCancelled(body []byte) error {
	var ev BookingCancelledEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	line := fmt.Sprintf("[%s] Booking cancelled | booking_id=%s | user_id=%s | movie=%q | seats=%s\n",
		ev.CancelledAt, ev.BookingID, ev.UserID, ev.MovieTitle, seatList(ev.Seats))
	return c.appendLine(line)
}

func (c *Consumer) appendLine(line string) error {
	c.fileMu.Lock()
	defer c.fileMu.Unlock()

	dir := c.LogDir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

func (c *Consumer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func seatList(seats []string) string {
	return "[" + strings.Join(seats, ",") + "]"
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
