package amqp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
	maxBackoff  = 30 * time.Second
)

// Client wraps one AMQP connection and channel with a small circuit
// breaker. Publishing while the broker is down must not stall or fail the
// HTTP request path, so after maxFailures consecutive errors the circuit
// opens and publishes fail fast until openTimeout has passed.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if err := c.setup(); err != nil {
		c.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	return nil
}

// setup declares the durable direct exchange and queue and binds them. The
// routing key doubles as the queue name, which is all a single-queue
// topology needs.
func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// exponentialBackoff returns the reconnect delay for the given attempt,
// doubling from one second and capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// isConnectionError reports whether err looks like a broken connection
// worth a reconnect, as opposed to a protocol or application error.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"EOF",
		"broken pipe",
		"use of closed network connection",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) publish(ctx context.Context, msgType string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping %s message", msgType)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: channel not open", msgType)
	}

	// Persistent delivery, since the worker may pick messages up long
	// after a restart of the broker.
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Type:         msgType,
		Timestamp:    time.Now(),
		Body:         body,
	}
	if err := channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, msg); err != nil {
		c.recordFailure()
		return fmt.Errorf("publish %s message: %w", msgType, err)
	}

	c.recordSuccess()
	return nil
}

// PublishRecordSync enqueues a sync message for id.
func (c *Client) PublishRecordSync(ctx context.Context, id string) error {
	body, err := NewRecordSyncMessage(id).ToJSON()
	return c.publishLogged(ctx, TypeRecordSync, id, body, err)
}

// PublishRecordDelete enqueues a delete message for id.
func (c *Client) PublishRecordDelete(ctx context.Context, id string) error {
	body, err := NewRecordDeleteMessage(id).ToJSON()
	return c.publishLogged(ctx, TypeRecordDelete, id, body, err)
}

func (c *Client) publishLogged(ctx context.Context, msgType, id string, body []byte, marshalErr error) error {
	if marshalErr != nil {
		return fmt.Errorf("marshal message: %w", marshalErr)
	}
	if err := c.publish(ctx, msgType, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Published message",
		"type", msgType,
		"id", id,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Handlers dispatches consumed messages by type.
type Handlers struct {
	OnSync   func(*RecordSyncMessage) error
	OnDelete func(*RecordDeleteMessage) error
}

// ConsumeRecords consumes sync and delete messages until ctx is done.
// Handler errors nack with requeue; undecodable messages nack without
// requeue so a poison message cannot wedge the queue. When the delivery
// channel breaks the client reconnects with exponential backoff.
func (c *Client) ConsumeRecords(ctx context.Context, handlers Handlers) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handlers)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}

		delay := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer lost connection, reconnecting",
			"error", err, "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := c.connect(); err != nil {
			slog.ErrorContext(ctx, "AMQP reconnect failed", "error", err, "attempt", attempt)
			continue
		}
		attempt = 0
	}
}

func (c *Client) consumeOnce(ctx context.Context, handlers Handlers) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("consume: connection closed")
	}

	// Manual acks; the dispatch decides per message whether to requeue.
	msgs, err := channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming record messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return nil
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.dispatch(ctx, delivery, handlers)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, delivery amqp091.Delivery, handlers Handlers) {
	switch delivery.Type {
	case TypeRecordDelete:
		msg, err := RecordDeleteMessageFromJSON(delivery.Body)
		if err != nil || handlers.OnDelete == nil {
			drop(ctx, delivery, "delete", err)
			return
		}
		settle(ctx, delivery, "delete", msg.ID, handlers.OnDelete(msg))

	case TypeRecordSync, "":
		msg, err := RecordSyncMessageFromJSON(delivery.Body)
		if err != nil || handlers.OnSync == nil {
			drop(ctx, delivery, "sync", err)
			return
		}
		settle(ctx, delivery, "sync", msg.ID, handlers.OnSync(msg))

	default:
		slog.WarnContext(ctx, "Unknown message type, dropping", "type", delivery.Type)
		delivery.Nack(false, false)
	}
}

// drop rejects a message without requeueing it: either the body did not
// decode, in which case retrying cannot help, or no handler is registered.
func drop(ctx context.Context, delivery amqp091.Delivery, kind string, err error) {
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal "+kind+" message", "error", err)
	}
	delivery.Nack(false, false)
}

// settle acks a handled delivery, or nacks with requeue when the handler
// failed so the message retries on the next round.
func settle(ctx context.Context, delivery amqp091.Delivery, kind, id string, err error) {
	if err != nil {
		slog.ErrorContext(ctx, "Failed to handle "+kind+" message", "error", err, "id", id)
		delivery.Nack(false, true)
		return
	}
	delivery.Ack(false)
	slog.InfoContext(ctx, "Processed "+kind+" message", "id", id)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
