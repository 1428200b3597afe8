package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db/sqlc"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type reminderStore struct {
	queries *sqlc.Queries
}

func newReminderStore(queries *sqlc.Queries) ReminderStore {
	return &reminderStore{queries: queries}
}

func (s *reminderStore) Create(ctx context.Context, reminder *model.Reminder) error {
	row, err := s.queries.CreateReminder(ctx, sqlc.CreateReminderParams{
		ID:           reminder.ID,
		ObserverID:   reminder.ObserverID,
		ObserverName: reminder.ObserverName,
		Message:      reminder.Message,
		FireAt:       pgtype.Timestamptz{Time: reminder.FireAt, Valid: true},
		ChannelID:    reminder.ChannelID,
	})
	if err != nil {
		return err
	}
	*reminder = *toReminderModel(row)
	return nil
}

func (s *reminderStore) GetByID(ctx context.Context, id int64) (*model.Reminder, error) {
	row, err := s.queries.GetReminder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toReminderModel(row), nil
}

func (s *reminderStore) ListPendingByObserver(ctx context.Context, observerID string) ([]model.Reminder, error) {
	rows, err := s.queries.ListPendingRemindersByObserver(ctx, observerID)
	if err != nil {
		return nil, err
	}
	return toReminderModels(rows), nil
}

func (s *reminderStore) ListDue(ctx context.Context, now time.Time, limit int32) ([]model.Reminder, error) {
	rows, err := s.queries.ListDueReminders(ctx, sqlc.ListDueRemindersParams{
		FireAt: pgtype.Timestamptz{Time: now, Valid: true},
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return toReminderModels(rows), nil
}

func (s *reminderStore) MarkSent(ctx context.Context, id int64) error {
	return s.queries.MarkReminderSent(ctx, id)
}

func (s *reminderStore) Delete(ctx context.Context, id int64, observerID string) (bool, error) {
	n, err := s.queries.DeleteReminder(ctx, sqlc.DeleteReminderParams{
		ID:         id,
		ObserverID: observerID,
	})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *reminderStore) CountPending(ctx context.Context) (int64, error) {
	return s.queries.CountPendingReminders(ctx)
}

func (s *reminderStore) DeleteSentBefore(ctx context.Context, before time.Time) (int64, error) {
	return s.queries.DeleteSentRemindersBefore(ctx, pgtype.Timestamptz{Time: before, Valid: true})
}

func toReminderModel(row sqlc.ScheduledReminder) *model.Reminder {
	return &model.Reminder{
		ID:           row.ID,
		ObserverID:   row.ObserverID,
		ObserverName: row.ObserverName,
		Message:      row.Message,
		FireAt:       row.FireAt.Time,
		ChannelID:    row.ChannelID,
		Sent:         row.Sent,
		CreatedAt:    row.CreatedAt.Time,
	}
}

func toReminderModels(rows []sqlc.ScheduledReminder) []model.Reminder {
	reminders := make([]model.Reminder, len(rows))
	for i, row := range rows {
		reminders[i] = *toReminderModel(row)
	}
	return reminders
}
