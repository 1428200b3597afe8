package store

import (
	"context"
	"errors"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// WatchStore defines the contract for watcher data access
type WatchStore interface {
	// Insert reports false when the observer already watches the ticket.
	Insert(ctx context.Context, watch *model.Watch) (bool, error)
	// Delete reports false when there was nothing to delete.
	Delete(ctx context.Context, ticketKey, observerID string) (bool, error)
	DeleteByTicket(ctx context.Context, ticketKey string) (int, error)
	ListByTicket(ctx context.Context, ticketKey string) ([]model.Watch, error)
	ListByObserver(ctx context.Context, observerID string) ([]model.Watch, error)
	ListTickets(ctx context.Context) ([]string, error)
	// Stats fills the watch counters of model.WatchStats.
	Stats(ctx context.Context) (model.WatchStats, error)
}

// SnapshotStore defines the contract for ticket snapshot data access
type SnapshotStore interface {
	Get(ctx context.Context, ticketKey string) (*model.Snapshot, error)
	Save(ctx context.Context, snapshot model.Snapshot) error
	// DeleteOrphans removes snapshots of tickets nobody watches.
	DeleteOrphans(ctx context.Context) (int64, error)
	// HoldAgainstCleanup keeps orphan cleanup out until the surrounding
	// transaction ends. Registrations take it before reading the snapshot.
	HoldAgainstCleanup(ctx context.Context) error
	// LockForCleanup waits for every holder and keeps new ones out until the
	// surrounding transaction ends.
	LockForCleanup(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// ReminderStore defines the contract for scheduled reminder data access
type ReminderStore interface {
	Create(ctx context.Context, reminder *model.Reminder) error
	GetByID(ctx context.Context, id int64) (*model.Reminder, error)
	ListPendingByObserver(ctx context.Context, observerID string) ([]model.Reminder, error)
	ListDue(ctx context.Context, now time.Time, limit int32) ([]model.Reminder, error)
	MarkSent(ctx context.Context, id int64) error
	// Delete only removes the reminder when it belongs to observerID.
	Delete(ctx context.Context, id int64, observerID string) (bool, error)
	CountPending(ctx context.Context) (int64, error)
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
}
