package broker

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	appErr "judgeworker/pkg/errors"
	"judgeworker/pkg/utils/logger"
)

// Acker settles one delivery with the broker.
type Acker interface {
	Ack() error
	Nack(requeue bool) error
}

// Delivery is one message handed to a consumer handler. The handler
// owns settlement: it must call exactly one of Acker.Ack or Acker.Nack.
type Delivery struct {
	Body          []byte
	ReplyTo       string
	CorrelationID string
	Redelivered   bool
	Acker         Acker
}

// Handler processes one delivery.
type Handler func(ctx context.Context, msg Delivery)

// amqpAcker settles against the underlying amqp delivery.
type amqpAcker struct {
	d amqp.Delivery
}

func (a amqpAcker) Ack() error              { return a.d.Ack(false) }
func (a amqpAcker) Nack(requeue bool) error { return a.d.Nack(false, requeue) }

// Consume delivers messages from queue to handler one at a time
// (prefetch 1) until ctx is cancelled, reconnecting with backoff when
// the broker drops the consumer channel. Handlers run synchronously on
// this goroutine; run Consume once per desired consumer.
func (c *Client) Consume(ctx context.Context, queue string, handler Handler) error {
	retry := c.reconnectBackoff(ctx)
	for {
		deliveries, ch, err := c.openConsumer(queue)
		if err != nil {
			logger.Warn(ctx, "open consumer failed, reconnecting",
				zap.String("queue", queue), zap.Error(err))
			if err := c.Connect(ctx); err != nil {
				return err
			}
			// Connect is a no-op while the connection is still open, so
			// a persistent channel-level failure must pace itself here.
			if err := c.waitRetry(ctx, retry); err != nil {
				return err
			}
			continue
		}
		retry.Reset()

		logger.Info(ctx, "consuming", zap.String("queue", queue))
		if err := c.consumeLoop(ctx, deliveries, handler); err != nil {
			_ = ch.Close()
			return err
		}
		_ = ch.Close()

		// deliveries channel closed underneath us: connection loss
		logger.Warn(ctx, "consumer channel lost, reconnecting", zap.String("queue", queue))
		if err := c.Connect(ctx); err != nil {
			return err
		}
	}
}

// waitRetry sleeps for the policy's next interval or until ctx ends.
func (c *Client) waitRetry(ctx context.Context, policy backoff.BackOff) error {
	d := policy.NextBackOff()
	if d == backoff.Stop {
		if err := ctx.Err(); err != nil {
			return err
		}
		return appErr.New(appErr.BrokerError).WithMessage("consumer retry policy exhausted")
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// openConsumer opens a dedicated channel with prefetch 1 and starts
// consuming from a durable queue.
func (c *Client) openConsumer(queue string) (<-chan amqp.Delivery, *amqp.Channel, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil, nil, appErr.New(appErr.BrokerError).WithMessage("broker is not connected")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, appErr.Wrapf(err, appErr.BrokerError, "open consumer channel")
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		return nil, nil, appErr.Wrapf(err, appErr.BrokerError, "set prefetch")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, nil, appErr.Wrapf(err, appErr.BrokerError, "declare queue %s", queue)
	}
	deliveries, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, nil, appErr.Wrapf(err, appErr.BrokerError, "consume %s", queue)
	}
	return deliveries, ch, nil
}

// consumeLoop drains deliveries until ctx ends (returned as the ctx
// error) or the channel closes (returned as nil, caller reconnects).
func (c *Client) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			handler(ctx, Delivery{
				Body:          d.Body,
				ReplyTo:       d.ReplyTo,
				CorrelationID: d.CorrelationId,
				Redelivered:   d.Redelivered,
				Acker:         amqpAcker{d: d},
			})
		}
	}
}
