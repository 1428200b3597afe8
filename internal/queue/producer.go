package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/id"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

type Producer interface {
	Enqueue(ctx context.Context, n notify.Notification) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Enqueue appends n to the stream. Notifications without an ID get one so
// retries and the dead letter stream can be correlated.
func (p *redisProducer) Enqueue(ctx context.Context, n notify.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	if n.ID == 0 {
		n.ID = id.New()
	}

	traceID := ""
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}

	values, err := Encode(n, 1, traceID)
	if err != nil {
		return err
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued notification",
		"notification_id", n.ID,
		"kind", n.Kind,
		"ticket_key", n.TicketKey)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
