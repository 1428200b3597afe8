package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/id"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
)

const dueReminderBatch = 100

var (
	ErrInvalidReminderDate = errors.New("invalid reminder date")
	ErrReminderInPast      = errors.New("reminder time is not in the future")
	ErrEmptyReminder       = errors.New("reminder message is empty")
)

var dateLayouts = []string{"2/1/2006", "2/1/06"}

var naturalDates = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// ParseReminderTime resolves a reminder date and optional HH:MM clock
// relative to now. Accepted dates are "today", "tomorrow", "tmrw",
// dd/mm/yyyy, dd/mm/yy, and English phrases such as "next friday".
// Without a clock the current time of day is used.
func ParseReminderTime(date, clock string, now time.Time) (time.Time, error) {
	d := strings.ToLower(strings.TrimSpace(date))
	loc := now.Location()

	var day time.Time
	natural := false
	switch d {
	case "today":
		day = now
	case "tomorrow", "tmrw":
		day = now.AddDate(0, 0, 1)
	default:
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, d, loc); err == nil {
				day = t
				break
			}
		}
		if day.IsZero() {
			r, err := naturalDates.Parse(d, now)
			if err != nil || r == nil {
				return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidReminderDate, date)
			}
			day = r.Time
			natural = true
		}
	}

	var at time.Time
	switch c := strings.TrimSpace(clock); {
	case c != "":
		t, err := time.Parse("15:04", c)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidReminderDate, clock)
		}
		at = time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	case natural:
		at = day
	default:
		at = time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), 0, loc)
	}

	if !at.After(now) {
		return time.Time{}, fmt.Errorf("%w: %s", ErrReminderInPast, at.Format(time.DateTime))
	}
	return at, nil
}

type CreateReminderInput struct {
	Observer model.Observer
	// ChannelID is where the reminder is posted; empty means a direct message.
	ChannelID string
	Message   string
	Date      string
	Time      string
}

type ReminderService interface {
	Create(ctx context.Context, in CreateReminderInput) (*model.Reminder, error)
	ListPending(ctx context.Context, observerID string) ([]model.Reminder, error)
	// Delete reports false when the reminder does not exist or belongs to someone else.
	Delete(ctx context.Context, id int64, observerID string) (bool, error)
	// DispatchDue queues every reminder whose time has come and returns how many were queued.
	DispatchDue(ctx context.Context) (int, error)
}

type reminderService struct {
	reminders store.ReminderStore
	publisher Publisher
	now       func() time.Time
}

// NewReminderService builds a ReminderService. A nil now uses time.Now.
func NewReminderService(reminders store.ReminderStore, publisher Publisher, now func() time.Time) ReminderService {
	if now == nil {
		now = time.Now
	}
	return &reminderService{reminders: reminders, publisher: publisher, now: now}
}

func (s *reminderService) Create(ctx context.Context, in CreateReminderInput) (*model.Reminder, error) {
	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		return nil, ErrEmptyReminder
	}

	fireAt, err := ParseReminderTime(in.Date, in.Time, s.now())
	if err != nil {
		return nil, err
	}

	reminder := &model.Reminder{
		ID:           id.New(),
		ObserverID:   in.Observer.ID,
		ObserverName: in.Observer.Name,
		Message:      msg,
		FireAt:       fireAt,
		ChannelID:    in.ChannelID,
	}
	if err := s.reminders.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("creating reminder: %w", err)
	}

	slog.InfoContext(ctx, "reminder scheduled",
		"reminder_id", reminder.ID,
		"observer_id", reminder.ObserverID,
		"fire_at", reminder.FireAt)
	return reminder, nil
}

func (s *reminderService) ListPending(ctx context.Context, observerID string) ([]model.Reminder, error) {
	return s.reminders.ListPendingByObserver(ctx, observerID)
}

func (s *reminderService) Delete(ctx context.Context, id int64, observerID string) (bool, error) {
	deleted, err := s.reminders.Delete(ctx, id, observerID)
	if err != nil {
		return false, fmt.Errorf("deleting reminder: %w", err)
	}
	return deleted, nil
}

func (s *reminderService) DispatchDue(ctx context.Context) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.service.reminders"})

	due, err := s.reminders.ListDue(ctx, s.now(), dueReminderBatch)
	if err != nil {
		return 0, fmt.Errorf("listing due reminders: %w", err)
	}

	queued := 0
	var errs []error
	for _, r := range due {
		rctx := logger.WithLogFields(ctx, logger.LogFields{ReminderID: &r.ID, ObserverID: &r.ObserverID})

		if err := s.publisher.Enqueue(rctx, reminderNotification(r)); err != nil {
			slog.ErrorContext(rctx, "failed to queue reminder", "error", err)
			errs = append(errs, err)
			continue
		}
		// A failure here means the reminder is sent again on the next sweep.
		if err := s.reminders.MarkSent(rctx, r.ID); err != nil {
			slog.ErrorContext(rctx, "failed to mark reminder sent", "error", err)
			errs = append(errs, err)
			continue
		}
		queued++
	}

	if queued > 0 {
		slog.InfoContext(ctx, "reminders dispatched", "count", queued)
	}
	return queued, errors.Join(errs...)
}

func reminderNotification(r model.Reminder) notify.Notification {
	n := notify.Notification{
		Kind: notify.KindReminder,
		Payload: notify.Payload{
			Title:  "Reminder",
			Text:   r.Message,
			Footer: "Set " + r.CreatedAt.Format("Mon 2 Jan 15:04"),
		},
	}
	if r.ChannelID != "" {
		n.ChannelID = r.ChannelID
		n.Payload.Text = fmt.Sprintf("<@%s> %s", r.ObserverID, r.Message)
	} else {
		n.ObserverID = r.ObserverID
	}
	return n
}
