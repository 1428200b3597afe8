// Package worker drains the notification stream and hands each entry to the
// chat dispatcher, retrying failed deliveries and dead-lettering the rest.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/queue"
)

type Config struct {
	MaxAttempts int
	// ErrorBackoff is how long to pause after a failed read.
	ErrorBackoff time.Duration
}

type Worker struct {
	consumer   Consumer
	dispatcher Dispatcher
	cfg        Config

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, dispatcher Dispatcher, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{
		consumer:   consumer,
		dispatcher: dispatcher,
		cfg:        cfg,
		stopCh:     make(chan struct{}),
		stoppedCh:  make(chan struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) error {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.worker.delivery"})
	slog.InfoContext(ctx, "delivery worker started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			slog.InfoContext(ctx, "delivery worker stopping")
			return nil
		default:
		}

		if err := w.processOneBatch(ctx); err != nil {
			slog.ErrorContext(ctx, "batch processing error", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-w.stopCh:
				return nil
			case <-time.After(w.cfg.ErrorBackoff):
			}
		}
	}
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) processOneBatch(ctx context.Context) error {
	messages, err := w.consumer.Read(ctx)
	if err != nil {
		return fmt.Errorf("reading from stream: %w", err)
	}

	for _, msg := range messages {
		w.Handle(ctx, msg)
	}
	return nil
}

// Handle delivers msg and settles it on the stream: acked on success,
// requeued on failure, dead-lettered once attempts run out. It is shared
// with the reclaimer.
func (w *Worker) Handle(ctx context.Context, msg queue.Message) error {
	msgID := msg.ID
	fields := logger.LogFields{MessageID: &msgID}
	if msg.Notification.TicketKey != "" {
		fields.TicketKey = &msg.Notification.TicketKey
	}
	if msg.Notification.ObserverID != "" {
		fields.ObserverID = &msg.Notification.ObserverID
	}
	ctx = logger.WithLogFields(ctx, fields)

	if err := w.deliverSafe(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "notification delivery failed",
			"error", err,
			"kind", msg.Notification.Kind,
			"attempt", msg.Attempt)
		w.handleFailedMessage(ctx, msg, err)
		return err
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		// A delivered but unacked entry is reclaimed and may be sent twice.
		slog.WarnContext(ctx, "failed to ACK message", "error", err)
	}
	return nil
}

func (w *Worker) deliverSafe(ctx context.Context, msg queue.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in delivery", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	sc := logger.StartSpan(ctx, "worker.deliver."+string(msg.Notification.Kind))
	defer sc.End()

	start := time.Now()
	if err := w.dispatcher.Dispatch(sc.Context(), msg.Notification); err != nil {
		return err
	}
	slog.InfoContext(ctx, "notification delivered",
		"kind", msg.Notification.Kind,
		"notification_id", strconv.FormatInt(msg.Notification.ID, 10),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (w *Worker) handleFailedMessage(ctx context.Context, msg queue.Message, err error) {
	if notify.IsPermanent(err) {
		slog.ErrorContext(ctx, "permanent delivery failure, sending to DLQ", "attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}
	if msg.Attempt >= w.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"attempts", msg.Attempt)
		if dlqErr := w.consumer.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", dlqErr)
		}
		return
	}

	slog.WarnContext(ctx, "requeuing failed message", "attempt", msg.Attempt)
	if requeueErr := w.consumer.Requeue(ctx, msg, err.Error()); requeueErr != nil {
		slog.ErrorContext(ctx, "failed to requeue message", "error", requeueErr)
	}
}
