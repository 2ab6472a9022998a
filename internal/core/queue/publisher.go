// Package queue publishes authentication events to RabbitMQ for audit consumers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"github.com/duynhne/intervention-auth/internal/core/domain"
)

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher closed")

const (
	minRedialBackoff = time.Second
	maxRedialBackoff = 30 * time.Second
)

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

type amqpConnection interface {
	channel() (amqpChannel, error)
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (amqpConnection, error)

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (amqpConnection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// AMQPPublisher implements domain.EventPublisher on a durable RabbitMQ queue.
// One channel is shared; publishes are serialized because amqp channels are
// not safe for concurrent use. A connection or channel closed by the broker is
// re-dialed on the next Publish, with exponential backoff between failed dials.
type AMQPPublisher struct {
	mu    sync.Mutex
	url   string
	queue string
	dial  dialFunc
	now   func() time.Time

	conn amqpConnection
	ch   amqpChannel

	backoff    time.Duration
	nextDialAt time.Time
	closed     bool
}

// NewAMQPPublisher dials url and declares the durable queue.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	p := newPublisher(url, queue, dialAMQP)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connectLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(url, queue string, dial dialFunc) *AMQPPublisher {
	return &AMQPPublisher{
		url:   url,
		queue: queue,
		dial:  dial,
		now:   time.Now,
	}
}

// connectLocked dials, opens a channel and declares the queue. p.mu must be held.
func (p *AMQPPublisher) connectLocked() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		p.queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue %q: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	go p.watch(ch, ch.NotifyClose(make(chan *amqp.Error, 1)))
	return nil
}

// watch drops ch once the broker closes it so the next Publish re-dials.
// Closing the connection closes its channels, so one watcher covers both.
func (p *AMQPPublisher) watch(ch amqpChannel, closes chan *amqp.Error) {
	reason, ok := <-closes

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != ch {
		return
	}
	if ok && reason != nil {
		log.Warn().
			Str("queue", p.queue).
			Int("code", reason.Code).
			Str("reason", reason.Reason).
			Msg("RabbitMQ channel closed, will reconnect on next publish")
	}
	p.dropLocked()
}

// ensureLocked returns a usable channel, re-dialing when the previous one was
// closed and the backoff has elapsed. p.mu must be held.
func (p *AMQPPublisher) ensureLocked() error {
	if p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.dropLocked()

	if now := p.now(); now.Before(p.nextDialAt) {
		return fmt.Errorf("rabbitmq reconnect backoff until %s", p.nextDialAt.Format(time.RFC3339))
	}

	if err := p.connectLocked(); err != nil {
		if p.backoff == 0 {
			p.backoff = minRedialBackoff
		} else if p.backoff < maxRedialBackoff {
			p.backoff = min(p.backoff*2, maxRedialBackoff)
		}
		p.nextDialAt = p.now().Add(p.backoff)
		return err
	}

	p.backoff = 0
	p.nextDialAt = time.Time{}
	log.Info().Str("queue", p.queue).Msg("RabbitMQ reconnected")
	return nil
}

func (p *AMQPPublisher) dropLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Publish sends event as a persistent JSON message. A publish that fails on a
// dead channel is retried once on a fresh connection.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.AuthEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(event.Type),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPublisherClosed
	}

	for attempt := 0; ; attempt++ {
		if err := p.ensureLocked(); err != nil {
			return fmt.Errorf("publish %s: %w", event.Type, err)
		}

		err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
		if err == nil {
			return nil
		}
		if attempt > 0 || !p.ch.IsClosed() {
			return fmt.Errorf("publish %s: %w", event.Type, err)
		}
		p.dropLocked()
	}
}

// Close closes the channel and the connection. Later publishes fail with
// ErrPublisherClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.conn == nil {
		return nil
	}

	chErr := p.ch.Close()
	err := p.conn.Close()
	p.ch, p.conn = nil, nil
	if err != nil {
		return err
	}
	return chErr
}

// NoopPublisher discards events. It is used when RabbitMQ is disabled.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.AuthEvent) error { return nil }
