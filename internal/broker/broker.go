// Package broker adapts the worker to RabbitMQ.
//
// One connection per process; queues are declared durable, results are
// published with persistent delivery to the default exchange (routing
// key = queue name), and consumers run with prefetch 1 so a busy worker
// never hoards jobs. Lost connections are re-established with
// exponential backoff until the context is cancelled.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	appErr "judgeworker/pkg/errors"
	"judgeworker/pkg/utils/logger"
)

const (
	defaultReconnectBase = time.Second
	defaultReconnectMax  = 30 * time.Second
)

// Config holds the broker connection settings.
type Config struct {
	// URL is the amqp:// connection string. Required.
	URL string

	// ReconnectBase is the initial reconnect delay. Default: 1s.
	ReconnectBase time.Duration

	// ReconnectMax caps the reconnect delay. Default: 30s.
	ReconnectMax time.Duration
}

// Client is the process-wide broker connection. Publishing is
// serialized on one channel; each consumer gets its own channel so
// prefetch limits apply per consumer.
type Client struct {
	cfg Config

	mu     sync.Mutex
	conn   *amqp.Connection
	pubCh  *amqp.Channel
	closed bool
}

// New validates the configuration and builds an unconnected Client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("broker url is required")
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = defaultReconnectBase
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = defaultReconnectMax
	}
	return &Client{cfg: cfg}, nil
}

// reconnectBackoff is the retry policy for (re)connecting: exponential
// with jitter, unbounded in elapsed time so the ctx decides when to
// give up.
func (c *Client) reconnectBackoff(ctx context.Context) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.ReconnectBase
	expo.MaxInterval = c.cfg.ReconnectMax
	expo.MaxElapsedTime = 0
	return backoff.WithContext(expo, ctx)
}

// Connect dials the broker, retrying with backoff until it succeeds or
// ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	op := func() error {
		if err := c.connectOnce(); err != nil {
			logger.Warn(ctx, "broker connect failed, retrying", zap.Error(err))
			return err
		}
		return nil
	}
	if err := backoff.Retry(op, c.reconnectBackoff(ctx)); err != nil {
		return appErr.Wrapf(err, appErr.BrokerError, "connect to broker")
	}
	logger.Info(ctx, "broker connected")
	return nil
}

func (c *Client) connectOnce() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return backoff.Permanent(fmt.Errorf("broker client is closed"))
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	c.conn = conn
	c.pubCh = ch
	return nil
}

// DeclareQueue declares a durable queue, creating it if absent.
func (c *Client) DeclareQueue(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pubCh == nil {
		return appErr.New(appErr.BrokerError).WithMessage("broker is not connected")
	}
	if _, err := c.pubCh.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return appErr.Wrapf(err, appErr.BrokerError, "declare queue %s", name)
	}
	return nil
}

// resultPublishing wraps a JSON body in a persistent publishing.
func resultPublishing(body []byte) amqp.Publishing {
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
}

// Publish sends body to queue on the default exchange with persistent
// delivery.
func (c *Client) Publish(ctx context.Context, queue string, body []byte) error {
	return c.publish(ctx, queue, resultPublishing(body))
}

// PublishReply sends a correlated reply to the caller's reply queue.
func (c *Client) PublishReply(ctx context.Context, queue, correlationID string, body []byte) error {
	pub := resultPublishing(body)
	pub.CorrelationId = correlationID
	return c.publish(ctx, queue, pub)
}

func (c *Client) publish(ctx context.Context, queue string, pub amqp.Publishing) error {
	c.mu.Lock()
	ch := c.pubCh
	c.mu.Unlock()
	if ch == nil {
		return appErr.New(appErr.BrokerError).WithMessage("broker is not connected")
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return appErr.Wrapf(err, appErr.PublishFailed, "publish to %s", queue)
	}
	return nil
}

// Ping reports whether the connection is up.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.conn.IsClosed() {
		return appErr.New(appErr.BrokerError).WithMessage("broker is not connected")
	}
	return nil
}

// Close tears down the connection. The client cannot be reused.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.pubCh != nil {
		_ = c.pubCh.Close()
		c.pubCh = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
