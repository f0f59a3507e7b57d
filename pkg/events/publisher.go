// Package events publishes résumé lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/logger"
)

const (
	DefaultDialTimeout = 5 * time.Second
	maxReconnectDelay  = 30 * time.Second
	heartbeat          = 10 * time.Second
)

var (
	errClosed       = errors.New("events: publisher closed")
	errNotConnected = errors.New("events: broker not connected")
)

// AMQPPublisher publishes to a durable topic exchange; the routing key is the event type.
//
// Publish never dials. While the broker is unreachable events are dropped and a single
// background loop reconnects with backoff.
type AMQPPublisher struct {
	url         string
	exchange    string
	dialTimeout time.Duration

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           *amqp.Channel
	closed       bool
	reconnecting bool
	done         chan struct{}
}

var _ domain.ResumeEventPublisher = (*AMQPPublisher)(nil)

func newAMQPPublisher(url, exchange string, dialTimeout time.Duration) *AMQPPublisher {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	return &AMQPPublisher{
		url:         url,
		exchange:    exchange,
		dialTimeout: dialTimeout,
		done:        make(chan struct{}),
	}
}

// NewAMQPPublisher connects once and fails if the broker is unreachable within dialTimeout.
func NewAMQPPublisher(url, exchange string, dialTimeout time.Duration) (*AMQPPublisher, error) {
	p := newAMQPPublisher(url, exchange, dialTimeout)
	conn, ch, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.installLocked(conn, ch)
	p.mu.Unlock()
	logger.Log.Info("RabbitMQ publisher connected", "exchange", exchange)
	return p, nil
}

// dial touches no publisher state, so it runs without mu.
func (p *AMQPPublisher) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(p.dialTimeout),
		Heartbeat: heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	return conn, ch, nil
}

func (p *AMQPPublisher) installLocked(conn *amqp.Connection, ch *amqp.Channel) {
	p.conn, p.ch = conn, ch
	closes := conn.NotifyClose(make(chan *amqp.Error, 1))
	go p.watch(conn, closes)
}

// watch drops a connection the broker closed and starts reconnecting.
func (p *AMQPPublisher) watch(conn *amqp.Connection, closes chan *amqp.Error) {
	amqpErr := <-closes

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != conn {
		return
	}
	logger.Log.Warn("RabbitMQ connection lost", "error", amqpErr)
	p.conn, p.ch = nil, nil
	p.reconnectLocked()
}

func (p *AMQPPublisher) reconnectLocked() {
	if p.closed || p.reconnecting {
		return
	}
	p.reconnecting = true
	go p.reconnectLoop()
}

func (p *AMQPPublisher) reconnectLoop() {
	delay := time.Second
	for {
		conn, ch, err := p.dial()

		p.mu.Lock()
		if p.closed {
			p.reconnecting = false
			p.mu.Unlock()
			if err == nil {
				conn.Close()
			}
			return
		}
		if err == nil {
			p.installLocked(conn, ch)
			p.reconnecting = false
			p.mu.Unlock()
			logger.Log.Info("RabbitMQ publisher reconnected", "exchange", p.exchange)
			return
		}
		p.mu.Unlock()

		logger.Log.Warn("RabbitMQ reconnect failed", "error", err, "retry_in", delay)
		select {
		case <-p.done:
		case <-time.After(delay):
		}
		delay = min(delay*2, maxReconnectDelay)
	}
}

// Publish sends one event or returns immediately when disconnected.
func (p *AMQPPublisher) Publish(ctx context.Context, event domain.ResumeEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return errClosed
	}
	ch := p.ch
	if ch == nil {
		p.reconnectLocked()
		p.mu.Unlock()
		return errNotConnected
	}
	p.mu.Unlock()

	err = ch.Publish(p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.mu.Lock()
		if p.ch == ch {
			p.conn.Close()
			p.conn, p.ch = nil, nil
			p.reconnectLocked()
		}
		p.mu.Unlock()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.done != nil {
		close(p.done)
	}
	conn := p.conn
	p.conn, p.ch = nil, nil
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// NoopPublisher drops events. It is used when RABBITMQ_URL is not set.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event domain.ResumeEvent) error {
	logger.Log.Debug("resume event dropped", "type", event.Type, "profile_id", event.ProfileID, "resume_id", event.ResumeID)
	return nil
}
