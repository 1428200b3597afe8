package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/queue"
)

// ReclaimSource is the part of the stream the reclaimer works on.
type ReclaimSource interface {
	Stale(ctx context.Context, minIdle time.Duration, count int64) ([]queue.Pending, error)
	Claim(ctx context.Context, claimant string, minIdle time.Duration, id string) (queue.Message, bool, error)
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
}

type ReclaimerConfig struct {
	// Consumer is the name claimed entries are moved to.
	Consumer  string
	MinIdle   time.Duration
	Interval  time.Duration
	BatchSize int64
	// MaxDeliveries caps how often one entry is read before it is
	// dead-lettered instead of delivered again.
	MaxDeliveries int64
}

type ReclaimStats struct {
	Claimed      int
	Redelivered  int
	DeadLettered int
	// Skipped counts entries another consumer claimed first.
	Skipped int
}

// Reclaimer claims notifications left pending by a worker that died between
// reading and acking them. Entries that went stale for their kind or were
// delivered too often are dead-lettered; the rest go back through the
// delivery handler.
type Reclaimer struct {
	source ReclaimSource
	handle queue.MessageProcessor
	cfg    ReclaimerConfig
	now    func() time.Time

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewReclaimer(source ReclaimSource, handle queue.MessageProcessor, cfg ReclaimerConfig) *Reclaimer {
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = 5 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return &Reclaimer{
		source:    source,
		handle:    handle,
		cfg:       cfg,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// WithClock replaces the clock used to age entries.
func (r *Reclaimer) WithClock(now func() time.Time) *Reclaimer {
	r.now = now
	return r
}

// Run starts the reclaimer loop. Blocks until Stop() is called.
func (r *Reclaimer) Run(ctx context.Context) {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.worker.reclaimer"})

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"max_deliveries", r.cfg.MaxDeliveries)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			stats, err := r.ReclaimOnce(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
				continue
			}
			if stats.Claimed > 0 {
				slog.InfoContext(ctx, "reclaim cycle complete",
					"claimed", stats.Claimed,
					"redelivered", stats.Redelivered,
					"dead_lettered", stats.DeadLettered,
					"skipped", stats.Skipped)
			}
		}
	}
}

// Stop signals the reclaimer to stop gracefully.
func (r *Reclaimer) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

// ReclaimOnce settles one batch of stale entries.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (ReclaimStats, error) {
	var stats ReclaimStats

	pending, err := r.source.Stale(ctx, r.cfg.MinIdle, r.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("listing stale entries: %w", err)
	}

	for _, p := range pending {
		msg, ok, err := r.source.Claim(ctx, r.cfg.Consumer, r.cfg.MinIdle, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to claim entry",
				"error", err,
				"message_id", p.ID,
				"original_consumer", p.Consumer)
			continue
		}
		if !ok {
			stats.Skipped++
			continue
		}
		stats.Claimed++

		if r.settle(ctx, msg, p) {
			stats.DeadLettered++
		} else {
			stats.Redelivered++
		}
	}
	return stats, nil
}

// settle dead-letters or redelivers a claimed entry and reports whether it
// was dead-lettered.
func (r *Reclaimer) settle(ctx context.Context, msg queue.Message, p queue.Pending) bool {
	n := msg.Notification
	msgID := msg.ID
	fields := logger.LogFields{MessageID: &msgID}
	if n.TicketKey != "" {
		fields.TicketKey = &n.TicketKey
	}
	if n.ObserverID != "" {
		fields.ObserverID = &n.ObserverID
	}
	ctx = logger.WithLogFields(ctx, fields)

	attrs := []any{
		"notification_id", strconv.FormatInt(n.ID, 10),
		"kind", n.Kind,
		"original_consumer", p.Consumer,
		"deliveries", p.Deliveries,
	}

	if reason := r.deadLetterReason(msg, p); reason != "" {
		slog.WarnContext(ctx, "reclaimed notification dead-lettered", append(attrs, "reason", reason)...)
		if err := r.source.SendDLQ(ctx, msg, reason); err != nil {
			slog.ErrorContext(ctx, "failed to send to DLQ", "error", err)
		}
		return true
	}

	slog.InfoContext(ctx, "redelivering reclaimed notification", attrs...)
	if err := r.handle(ctx, msg); err != nil {
		// The handler has already requeued or dead-lettered it.
		slog.WarnContext(ctx, "reclaimed notification failed again", append(attrs, "error", err)...)
	}
	return false
}

func (r *Reclaimer) deadLetterReason(msg queue.Message, p queue.Pending) string {
	if p.Deliveries >= r.cfg.MaxDeliveries {
		return fmt.Sprintf("delivered %d times without ack", p.Deliveries)
	}
	maxAge := msg.Notification.Kind.MaxAge()
	if maxAge == 0 {
		return ""
	}
	enqueued, ok := msg.EnqueuedAt()
	if !ok {
		return ""
	}
	if age := r.now().Sub(enqueued); age > maxAge {
		return fmt.Sprintf("%s notification stale after %s", msg.Notification.Kind, age.Truncate(time.Second))
	}
	return ""
}
