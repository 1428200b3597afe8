package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db/sqlc"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type snapshotStore struct {
	queries *sqlc.Queries
}

func newSnapshotStore(queries *sqlc.Queries) SnapshotStore {
	return &snapshotStore{queries: queries}
}

func (s *snapshotStore) Get(ctx context.Context, ticketKey string) (*model.Snapshot, error) {
	row, err := s.queries.GetSnapshot(ctx, ticketKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toSnapshotModel(row), nil
}

// Save overwrites whatever is stored for the ticket.
func (s *snapshotStore) Save(ctx context.Context, snapshot model.Snapshot) error {
	return s.queries.UpsertSnapshot(ctx, sqlc.UpsertSnapshotParams{
		TicketKey:    snapshot.TicketKey,
		Status:       snapshot.Status,
		Title:        snapshot.Title,
		Description:  snapshot.Description,
		Assignee:     snapshot.Assignee,
		LastModified: snapshot.LastModified,
	})
}

func (s *snapshotStore) DeleteOrphans(ctx context.Context) (int64, error) {
	return s.queries.DeleteOrphanSnapshots(ctx)
}

func (s *snapshotStore) HoldAgainstCleanup(ctx context.Context) error {
	return s.queries.HoldSnapshotCleanup(ctx)
}

func (s *snapshotStore) LockForCleanup(ctx context.Context) error {
	return s.queries.LockSnapshotCleanup(ctx)
}

func (s *snapshotStore) Count(ctx context.Context) (int64, error) {
	return s.queries.CountSnapshots(ctx)
}

func toSnapshotModel(row sqlc.TicketSnapshot) *model.Snapshot {
	return &model.Snapshot{
		TicketKey:    row.TicketKey,
		Status:       row.Status,
		Title:        row.Title,
		Description:  row.Description,
		Assignee:     row.Assignee,
		LastModified: row.LastModified,
		UpdatedAt:    row.UpdatedAt.Time,
	}
}
