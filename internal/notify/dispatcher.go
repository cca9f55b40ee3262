// Package notify fans pipeline events out to the configured channels.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/pkg/metrics"
)

const sendTimeout = 10 * time.Second

// Channel delivers one event to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, e models.Event) error
}

// Dispatcher delivers every event to every channel. A failing channel is
// logged and counted; it never affects the others or the caller.
type Dispatcher struct {
	Channels []Channel
	logger   *slog.Logger
}

func NewDispatcher(l *slog.Logger, channels ...Channel) *Dispatcher {
	return &Dispatcher{Channels: channels, logger: l}
}

func (d *Dispatcher) Notify(ctx context.Context, e models.Event) {
	for _, ch := range d.Channels {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
		err := ch.Send(sendCtx, e)
		cancel()

		if err != nil {
			metrics.NotificationFailures.WithLabelValues(ch.Name(), string(e.Kind)).Inc()
			d.logger.Error("Notification delivery failed",
				"channel", ch.Name(),
				"event", e.Kind,
				"event_id", e.EventID,
				"error", err,
			)
		}
	}
}

// LogChannel writes events as structured log lines.
type LogChannel struct {
	logger *slog.Logger
}

func NewLogChannel(l *slog.Logger) *LogChannel {
	return &LogChannel{logger: l}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(_ context.Context, e models.Event) error {
	attrs := []any{
		"event", e.Kind,
		"event_id", e.EventID,
		"import_log_id", e.ImportLogID,
		"status", e.Status,
	}
	switch e.Kind {
	case models.EventBlocked:
		c.logger.Warn("Import blocked by run in flight", append(attrs, "started_at", e.StartedAt)...)
	case models.EventStructureChanged:
		c.logger.Warn("Import awaiting approval", append(attrs, "files", len(e.Diffs))...)
	case models.EventCompleted:
		var counts map[models.DomainType]int
		var errs int
		if e.Summary != nil {
			counts = e.Summary.CountsByDomain()
			errs = len(e.Summary.Errors)
		}
		c.logger.Info("Import completed", append(attrs, "written", counts, "errors", errs)...)
	case models.EventFailed:
		c.logger.Error("Import failed", append(attrs, "step", e.Step, "message", e.Message)...)
	}
	return nil
}

// Publisher is the broker side of event delivery.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// BrokerChannel publishes events with their kind as routing key.
type BrokerChannel struct {
	publisher Publisher
}

func NewBrokerChannel(p Publisher) *BrokerChannel {
	return &BrokerChannel{publisher: p}
}

func (c *BrokerChannel) Name() string { return "rabbitmq" }

func (c *BrokerChannel) Send(ctx context.Context, e models.Event) error {
	return c.publisher.Publish(ctx, string(e.Kind), e)
}
