package service

import (
	"context"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db/sqlc"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
)

// StoreProvider exposes the stores a service operation needs. *store.Stores
// satisfies it, as do the transaction-bound stores handed out by TxRunner.
type StoreProvider interface {
	Watches() store.WatchStore
	Snapshots() store.SnapshotStore
	Reminders() store.ReminderStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q *sqlc.Queries) error {
		stores := store.NewStores(q)
		return fn(stores)
	})
}
