package store

import (
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db/sqlc"
)

type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Watches() WatchStore {
	return newWatchStore(s.queries)
}

func (s *Stores) Snapshots() SnapshotStore {
	return newSnapshotStore(s.queries)
}

func (s *Stores) Reminders() ReminderStore {
	return newReminderStore(s.queries)
}
