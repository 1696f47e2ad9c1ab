package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// connection and channel are the parts of the amqp091 types the client uses.
type connection interface {
	IsClosed() bool
	Close() error
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp091.Table) (<-chan amqp091.Delivery, error)
	Close() error
}

type dialFunc func(url, exchange, queue string) (connection, channel, error)

// Client publishes and consumes occurrence events on a durable direct exchange.
// Publishing is guarded by a circuit breaker.
type Client struct {
	url          string
	exchangeName string
	queueName    string
	dial         dialFunc

	mu      sync.Mutex
	conn    connection
	channel channel
	closed  bool

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	return newClient(url, exchangeName, queueName, dialBroker)
}

func newClient(url, exchangeName, queueName string, dial dialFunc) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		dial:         dial,
	}
	if err := c.reconnect(nil); err != nil {
		return nil, err
	}
	return c, nil
}

func dialBroker(url, exchange, queue string) (connection, channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, exchange, queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return conn, ch, nil
}

// reconnect replaces stale, the channel the caller saw fail, with a fresh session
// and closes the old one. If another goroutine already swapped in a live session
// the call does nothing, so simultaneous failures dial once.
func (c *Client) reconnect(stale channel) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("client closed")
	}
	if c.channel != nil && c.channel != stale && !c.conn.IsClosed() {
		return nil
	}

	conn, ch, err := c.dial(c.url, c.exchangeName, c.queueName)
	if err != nil {
		return err
	}
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn, c.channel = conn, ch
	return nil
}

func (c *Client) current() channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	// routing key is the queue name
	if err := ch.QueueBind(queue, queue, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishOccurrence sends t as a persistent JSON message.
func (c *Client) PublishOccurrence(ctx context.Context, t core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open, skipping publish")
	}

	body, err := NewOccurrenceMessage(t).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.current()
	err = c.publish(ctx, ch, body)
	if err != nil && isConnectionError(err) {
		slog.WarnContext(ctx, "AMQP connection lost, reconnecting",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldError, err)
		if rerr := c.reconnect(ch); rerr == nil {
			err = c.publish(ctx, c.current(), body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish occurrence %d: %w", t.ID, err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published occurrence event",
		log.FieldComponent, log.ComponentAMQP,
		log.FieldTransactionID, t.ID,
		log.FieldUserID, t.UserID,
		"exchange", c.exchangeName)
	return nil
}

func (c *Client) publish(ctx context.Context, ch channel, body []byte) error {
	if ch == nil {
		return errors.New("connection closed")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
}

// ConsumeOccurrences delivers messages to handler until ctx is cancelled. Successful
// messages are acked, handler failures are requeued and undecodable bodies dropped.
// A lost connection is re-established with exponential backoff.
func (c *Client) ConsumeOccurrences(ctx context.Context, handler func(context.Context, *OccurrenceMessage) error) error {
	attempt := 0
	for {
		ch := c.current()
		err := c.consume(ctx, ch, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Occurrence consumer stopped, reconnecting",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldError, err,
			"retry_in", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.reconnect(ch); err != nil {
			attempt++
			continue
		}
		attempt = 0
	}
}

func (c *Client) consume(ctx context.Context, ch channel, handler func(context.Context, *OccurrenceMessage) error) error {
	if ch == nil {
		return errors.New("connection closed")
	}

	msgs, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Consuming occurrence events",
		log.FieldComponent, log.ComponentAMQP,
		"queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			dispatch(ctx, d.Body, d, handler)
		}
	}
}

// acknowledger is the part of amqp091.Delivery that dispatch needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func dispatch(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *OccurrenceMessage) error) {
	msg, err := OccurrenceMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed occurrence message",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldError, err)
		_ = ack.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Occurrence handler failed, requeueing",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldTransactionID, msg.TransactionID,
			log.FieldError, err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
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

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
