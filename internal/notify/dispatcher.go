package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
)

// Dispatcher delivers notifications through a Sink and recovers from size
// rejections: first by truncating, then by falling back to plain-text chunks.
type Dispatcher struct {
	sink Sink
}

func NewDispatcher(sink Sink) *Dispatcher {
	return &Dispatcher{sink: sink}
}

// Enqueue delivers n synchronously. It lets one-shot commands publish
// without the notification stream.
func (d *Dispatcher) Enqueue(ctx context.Context, n Notification) error {
	return d.Dispatch(ctx, n)
}

// Dispatch returns nil once the notification is delivered or can never be
// delivered (unreachable observer, forbidden channel). Any other error is
// worth retrying.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}

	fields := logger.LogFields{Component: "updater.notify.dispatcher"}
	if n.TicketKey != "" {
		fields.TicketKey = &n.TicketKey
	}
	if n.Direct() {
		fields.ObserverID = &n.ObserverID
	}
	ctx = logger.WithLogFields(ctx, fields)

	deliver := func(p Payload) error {
		if n.Direct() {
			return d.sink.DeliverDirect(ctx, n.ObserverID, p)
		}
		return d.sink.DeliverToChannel(ctx, n.ChannelID, p)
	}

	err := deliver(n.Payload)
	if errors.Is(err, ErrPayloadTooLarge) {
		slog.WarnContext(ctx, "payload too large, retrying truncated", "kind", n.Kind)
		err = deliver(Truncate(n.Payload))
	}
	if errors.Is(err, ErrPayloadTooLarge) {
		slog.WarnContext(ctx, "truncated payload still too large, falling back to plain text", "kind", n.Kind)
		err = d.deliverPlain(n.Payload, deliver)
	}

	switch {
	case err == nil:
		slog.DebugContext(ctx, "notification delivered", "kind", n.Kind)
		return nil
	case errors.Is(err, ErrObserverUnreachable), errors.Is(err, ErrForbidden):
		slog.WarnContext(ctx, "notification dropped", "kind", n.Kind, "channel_id", n.ChannelID, "error", err)
		return nil
	case errors.Is(err, ErrPayloadTooLarge):
		slog.ErrorContext(ctx, "notification dropped, payload cannot be reduced", "kind", n.Kind)
		return nil
	default:
		return fmt.Errorf("delivering %s notification: %w", n.Kind, err)
	}
}

func (d *Dispatcher) deliverPlain(p Payload, deliver func(Payload) error) error {
	lines := []string{p.PlainText()}
	for i, chunk := range ChunkLines(lines, LogChunkLength) {
		if err := deliver(Payload{Text: chunk}); err != nil {
			return fmt.Errorf("plain-text part %d: %w", i+1, err)
		}
	}
	return nil
}
