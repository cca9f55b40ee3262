package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Guizzs26/go-sync-hr/pkg/metrics"
	"github.com/google/uuid"

	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmTimeout = 10 * time.Second

var ErrBrokerClosed = errors.New("broker connection is closed")

// RabbitMQClient publishes JSON messages to a topic exchange and waits for
// the broker's publisher confirm on every message.
type RabbitMQClient struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	logger     *slog.Logger
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
	closeOnce  sync.Once
	healthy    atomic.Bool
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewRabbitMQClient dials url, declares the durable topic exchange and turns
// on publisher confirms.
func NewRabbitMQClient(url, exchange string, l *slog.Logger) (*RabbitMQClient, error) {
	c, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := c.Channel()
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		c.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		ch.Close()
		c.Close()
		return nil, fmt.Errorf("failed to activate publisher confirms: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	client := &RabbitMQClient{
		conn:       c,
		channel:    ch,
		exchange:   exchange,
		logger:     l.With("exchange", exchange),
		connClosed: make(chan *amqp.Error, 1),
		chanClosed: make(chan *amqp.Error, 1),
		ctx:        ctx,
		cancel:     cancel,
	}

	client.healthy.Store(true)
	metrics.BrokerHealthy.Set(1)

	client.conn.NotifyClose(client.connClosed)
	client.channel.NotifyClose(client.chanClosed)
	go client.monitor()

	client.logger.Info("Connected to RabbitMQ, publisher confirms enabled")
	return client, nil
}

func (r *RabbitMQClient) monitor() {
	select {
	case err := <-r.connClosed:
		r.markDown("connection", err)
	case err := <-r.chanClosed:
		r.markDown("channel", err)
	case <-r.ctx.Done():
	}
}

func (r *RabbitMQClient) markDown(what string, err *amqp.Error) {
	r.healthy.Store(false)
	metrics.BrokerHealthy.Set(0)
	r.logger.Warn("RabbitMQ "+what+" closed", "error", err)
}

// Publish serializes payload and blocks until the broker acks it.
func (r *RabbitMQClient) Publish(ctx context.Context, routingKey string, payload any) error {
	if !r.IsHealthy() {
		return ErrBrokerClosed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	messageID := uuid.NewString()
	l := r.logger.With("message_id", messageID, "routing_key", routingKey)

	deferred, err := r.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		r.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			MessageId:    messageID,
			Timestamp:    time.Now().UTC(),
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		l.Error("Failed to publish message to exchange", "error", err)
		return fmt.Errorf("publish call failed: %w", err)
	}

	timer := time.NewTimer(confirmTimeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-deferred.Done():
		if !deferred.Acked() {
			return fmt.Errorf("RabbitMQ NACK received for %s", routingKey)
		}
		l.Debug("Message confirmed by broker")
		return nil
	case <-timer.C:
		return fmt.Errorf("publisher confirm timeout after %s", confirmTimeout)
	}
}

func (r *RabbitMQClient) Close() error {
	r.closeOnce.Do(func() {
		r.logger.Info("Terminating RabbitMQ client")
		r.cancel()
		if r.channel != nil {
			r.channel.Close()
		}
		if r.conn != nil {
			r.conn.Close()
		}
	})
	return nil
}

func (r *RabbitMQClient) IsHealthy() bool {
	return r.healthy.Load()
}

// EventPublisher keeps one RabbitMQClient alive across link failures. The
// link is dialed lazily and redialed on the next Publish after it drops.
type EventPublisher struct {
	url      string
	exchange string
	logger   *slog.Logger

	mu     sync.Mutex
	client *RabbitMQClient
	dial   func(url, exchange string, l *slog.Logger) (*RabbitMQClient, error)
}

func NewEventPublisher(url, exchange string, l *slog.Logger) *EventPublisher {
	return &EventPublisher{url: url, exchange: exchange, logger: l, dial: NewRabbitMQClient}
}

func (p *EventPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	client, err := p.link()
	if err != nil {
		return err
	}
	return client.Publish(ctx, routingKey, payload)
}

func (p *EventPublisher) link() (*RabbitMQClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil && p.client.IsHealthy() {
		return p.client, nil
	}
	if p.client != nil {
		p.client.Close()
		p.client = nil
		p.logger.Warn("RabbitMQ link lost, redialing")
	}

	client, err := p.dial(p.url, p.exchange, p.logger)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
