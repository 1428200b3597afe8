package store

import (
	"context"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db/sqlc"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type watchStore struct {
	queries *sqlc.Queries
}

func newWatchStore(queries *sqlc.Queries) WatchStore {
	return &watchStore{queries: queries}
}

func (s *watchStore) Insert(ctx context.Context, watch *model.Watch) (bool, error) {
	n, err := s.queries.InsertWatcher(ctx, sqlc.InsertWatcherParams{
		TicketKey:    watch.TicketKey,
		ObserverID:   watch.ObserverID,
		ObserverName: watch.ObserverName,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *watchStore) Delete(ctx context.Context, ticketKey, observerID string) (bool, error) {
	n, err := s.queries.DeleteWatcher(ctx, sqlc.DeleteWatcherParams{
		TicketKey:  ticketKey,
		ObserverID: observerID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *watchStore) DeleteByTicket(ctx context.Context, ticketKey string) (int, error) {
	n, err := s.queries.DeleteWatchersByTicket(ctx, ticketKey)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *watchStore) ListByTicket(ctx context.Context, ticketKey string) ([]model.Watch, error) {
	rows, err := s.queries.ListWatchersByTicket(ctx, ticketKey)
	if err != nil {
		return nil, err
	}
	return toWatchModels(rows), nil
}

func (s *watchStore) ListByObserver(ctx context.Context, observerID string) ([]model.Watch, error) {
	rows, err := s.queries.ListWatchersByObserver(ctx, observerID)
	if err != nil {
		return nil, err
	}
	return toWatchModels(rows), nil
}

func (s *watchStore) ListTickets(ctx context.Context) ([]string, error) {
	return s.queries.ListWatchedTickets(ctx)
}

func (s *watchStore) Stats(ctx context.Context) (model.WatchStats, error) {
	row, err := s.queries.GetWatcherStats(ctx)
	if err != nil {
		return model.WatchStats{}, err
	}
	return model.WatchStats{
		TotalWatches:    row.TotalWatches,
		UniqueObservers: row.UniqueObservers,
		WatchedTickets:  row.WatchedTickets,
	}, nil
}

func toWatchModels(rows []sqlc.Watcher) []model.Watch {
	watches := make([]model.Watch, len(rows))
	for i, row := range rows {
		watches[i] = model.Watch{
			TicketKey:    row.TicketKey,
			ObserverID:   row.ObserverID,
			ObserverName: row.ObserverName,
			CreatedAt:    row.CreatedAt.Time,
		}
	}
	return watches
}
