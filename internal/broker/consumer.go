package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/processor"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	TriggerQueue      = "hrsync.triggers"
	TriggerBinding    = "trigger.#"
	requeueThrottling = 5 * time.Second
)

// CommandRoutingKey is the key a command for action is published under.
func CommandRoutingKey(action models.CommandAction) string {
	return "trigger." + string(action)
}

type CommandHandler interface {
	Handle(ctx context.Context, cmd models.TriggerCommand) error
}

// TriggerConsumer reads trigger commands from the durable trigger queue.
type TriggerConsumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	handler  CommandHandler
	logger   *slog.Logger
}

func NewTriggerConsumer(url, exchange string, handler CommandHandler, logger *slog.Logger) (*TriggerConsumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	// Prefetch 1: a run holds the ingestion mutex anyway, so commands are
	// executed one at a time.
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	return &TriggerConsumer{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		handler:  handler,
		logger:   logger,
	}, nil
}

// Listen declares the topology and consumes until ctx is done or the
// delivery channel closes.
func (c *TriggerConsumer) Listen(ctx context.Context) error {
	if err := c.channel.ExchangeDeclare(c.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := c.channel.QueueDeclare(TriggerQueue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := c.channel.QueueBind(q.Name, TriggerBinding, c.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	msgs, err := c.channel.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Listening for trigger commands", "queue", q.Name, "routing_key", TriggerBinding)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.deliver(ctx, d)
		}
	}
}

func (c *TriggerConsumer) deliver(ctx context.Context, d amqp.Delivery) {
	var cmd models.TriggerCommand
	if err := json.Unmarshal(d.Body, &cmd); err != nil {
		c.logger.Error("Dropping malformed command", "message_id", d.MessageId, "error", err)
		d.Nack(false, false)
		return
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = d.MessageId
	}

	err := c.handler.Handle(ctx, cmd)
	switch {
	case err == nil:
		if err := d.Ack(false); err != nil {
			c.logger.Error("Failed to ack command", "correlation_id", cmd.CorrelationID, "error", err)
		}
	case errors.Is(err, processor.ErrPermanent):
		c.logger.Warn("Command rejected", "correlation_id", cmd.CorrelationID, "error", err)
		d.Nack(false, false)
	default:
		c.logger.Error("Command failed, requeueing", "correlation_id", cmd.CorrelationID, "error", err)
		select {
		case <-time.After(requeueThrottling):
		case <-ctx.Done():
		}
		d.Nack(false, true)
	}
}

func (c *TriggerConsumer) Close() {
	c.logger.Info("Shutting down trigger consumer")
	c.channel.Close()
	c.conn.Close()
}
