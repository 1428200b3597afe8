package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/snapshot"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
)

const registrationFetchTimeout = 10 * time.Second

var ErrInvalidTicketKey = errors.New("invalid ticket key")

// NormalizeTicketKey trims and upper-cases key. A key must look like
// PROJECT-123.
func NormalizeTicketKey(key string) (string, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if k == "" || strings.ContainsAny(k, " \t\n/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicketKey, key)
	}
	i := strings.LastIndex(k, "-")
	if i <= 0 || i == len(k)-1 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicketKey, key)
	}
	return k, nil
}

type RegisterResult struct {
	// Created is false when the observer was already watching.
	Created bool
	Issue   model.Issue
}

type WatchRegistry interface {
	Register(ctx context.Context, key string, observer model.Observer) (RegisterResult, error)
	// Unregister reports false when the observer was not watching the ticket.
	Unregister(ctx context.Context, key, observerID string) (bool, error)
	ListObservers(ctx context.Context, key string) ([]model.Watch, error)
	ListEntities(ctx context.Context, observerID string) ([]model.Watch, error)
	ListAllWatchedEntities(ctx context.Context) ([]string, error)
	// RemoveAll drops every watch on key along with its snapshot.
	RemoveAll(ctx context.Context, key string) (int, error)
	Stats(ctx context.Context) (model.WatchStats, error)
}

type watchRegistry struct {
	tracker  issue_tracker.IssueTrackerService
	stores   StoreProvider
	txRunner TxRunner
}

func NewWatchRegistry(tracker issue_tracker.IssueTrackerService, stores StoreProvider, txRunner TxRunner) WatchRegistry {
	return &watchRegistry{tracker: tracker, stores: stores, txRunner: txRunner}
}

func (r *watchRegistry) Register(ctx context.Context, key string, observer model.Observer) (RegisterResult, error) {
	key, err := NormalizeTicketKey(key)
	if err != nil {
		return RegisterResult{}, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TicketKey:  &key,
		ObserverID: &observer.ID,
		Component:  "updater.service.watch_registry",
	})

	fetchCtx, cancel := context.WithTimeout(ctx, registrationFetchTimeout)
	issue, err := r.tracker.FetchIssue(fetchCtx, key)
	cancel()
	if err != nil {
		return RegisterResult{}, fmt.Errorf("fetching %s: %w", key, err)
	}

	var created bool
	err = r.txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Snapshots().HoldAgainstCleanup(ctx); err != nil {
			return fmt.Errorf("holding snapshot cleanup: %w", err)
		}
		// An existing snapshot is kept so changes made since the last poll
		// still reach the other observers.
		if _, err := stores.Snapshots().Get(ctx, key); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("loading snapshot: %w", err)
			}
			if err := stores.Snapshots().Save(ctx, snapshot.FromIssue(*issue)); err != nil {
				return fmt.Errorf("saving snapshot: %w", err)
			}
		}

		inserted, err := stores.Watches().Insert(ctx, &model.Watch{
			TicketKey:    key,
			ObserverID:   observer.ID,
			ObserverName: observer.Name,
		})
		if err != nil {
			return fmt.Errorf("inserting watch: %w", err)
		}
		created = inserted
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}

	if created {
		slog.InfoContext(ctx, "watch registered", "status", issue.Status)
	} else {
		slog.DebugContext(ctx, "already watching")
	}

	return RegisterResult{Created: created, Issue: *issue}, nil
}

func (r *watchRegistry) Unregister(ctx context.Context, key, observerID string) (bool, error) {
	key, err := NormalizeTicketKey(key)
	if err != nil {
		return false, err
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TicketKey:  &key,
		ObserverID: &observerID,
		Component:  "updater.service.watch_registry",
	})

	removed, err := r.stores.Watches().Delete(ctx, key, observerID)
	if err != nil {
		return false, fmt.Errorf("deleting watch: %w", err)
	}
	if !removed {
		return false, nil
	}

	slog.InfoContext(ctx, "watch removed")
	r.deleteOrphans(ctx)
	return true, nil
}

func (r *watchRegistry) ListObservers(ctx context.Context, key string) ([]model.Watch, error) {
	key, err := NormalizeTicketKey(key)
	if err != nil {
		return nil, err
	}
	return r.stores.Watches().ListByTicket(ctx, key)
}

func (r *watchRegistry) ListEntities(ctx context.Context, observerID string) ([]model.Watch, error) {
	return r.stores.Watches().ListByObserver(ctx, observerID)
}

func (r *watchRegistry) ListAllWatchedEntities(ctx context.Context) ([]string, error) {
	return r.stores.Watches().ListTickets(ctx)
}

func (r *watchRegistry) RemoveAll(ctx context.Context, key string) (int, error) {
	n, err := r.stores.Watches().DeleteByTicket(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("deleting watches for %s: %w", key, err)
	}
	slog.InfoContext(ctx, "removed all watches", "ticket_key", key, "count", n)
	r.deleteOrphans(ctx)
	return n, nil
}

func (r *watchRegistry) Stats(ctx context.Context) (model.WatchStats, error) {
	stats, err := r.stores.Watches().Stats(ctx)
	if err != nil {
		return model.WatchStats{}, fmt.Errorf("watch stats: %w", err)
	}
	if stats.Snapshots, err = r.stores.Snapshots().Count(ctx); err != nil {
		return model.WatchStats{}, fmt.Errorf("counting snapshots: %w", err)
	}
	if stats.PendingReminders, err = r.stores.Reminders().CountPending(ctx); err != nil {
		return model.WatchStats{}, fmt.Errorf("counting reminders: %w", err)
	}
	return stats, nil
}

// deleteOrphans failures are logged only: the maintenance unit retries them.
func (r *watchRegistry) deleteOrphans(ctx context.Context) {
	n, err := pruneOrphans(ctx, r.txRunner)
	if err != nil {
		slog.WarnContext(ctx, "orphan snapshot cleanup failed", "error", err)
		return
	}
	if n > 0 {
		slog.DebugContext(ctx, "deleted orphan snapshots", "count", n)
	}
}

// pruneOrphans deletes unwatched snapshots under the cleanup lock, after any
// registration still in flight has committed its watch.
func pruneOrphans(ctx context.Context, txRunner TxRunner) (int64, error) {
	var n int64
	err := txRunner.WithTx(ctx, func(stores StoreProvider) error {
		if err := stores.Snapshots().LockForCleanup(ctx); err != nil {
			return fmt.Errorf("locking snapshot cleanup: %w", err)
		}
		var err error
		n, err = stores.Snapshots().DeleteOrphans(ctx)
		return err
	})
	return n, err
}
