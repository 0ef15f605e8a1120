package broker

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	appErr "judgeworker/pkg/errors"
)

// Call publishes body to queue and waits for the correlated reply on an
// exclusive server-named reply queue. On timeout the pending call fails
// and the reply consumer is torn down; a late reply is dropped with the
// auto-deleted queue.
func (c *Client) Call(ctx context.Context, queue string, body []byte, timeout time.Duration) ([]byte, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil || conn.IsClosed() {
		return nil, appErr.New(appErr.BrokerError).WithMessage("broker is not connected")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.BrokerError, "open rpc channel")
	}
	defer func() { _ = ch.Close() }()

	// server-named, exclusive, auto-delete: gone with this channel
	replyQueue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.BrokerError, "declare reply queue")
	}
	replies, err := ch.Consume(replyQueue.Name, "", true, true, false, false, nil)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.BrokerError, "consume reply queue")
	}

	correlationID := uuid.NewString()
	pub := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: correlationID,
		ReplyTo:       replyQueue.Name,
		Timestamp:     time.Now(),
		Body:          body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		return nil, appErr.Wrapf(err, appErr.PublishFailed, "publish rpc request to %s", queue)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	for {
		select {
		case <-callCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, appErr.Newf(appErr.RPCTimeout, "no reply from %s within %s", queue, timeout)
		case reply, ok := <-replies:
			if !ok {
				return nil, appErr.New(appErr.BrokerError).WithMessage("reply channel closed")
			}
			if reply.CorrelationId != correlationID {
				continue
			}
			return reply.Body, nil
		}
	}
}
