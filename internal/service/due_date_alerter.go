package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
)

// DueSoonQuery selects the open tickets of accountID whose end date is today
// or tomorrow.
func DueSoonQuery(accountID string, today time.Time) string {
	tomorrow := today.AddDate(0, 0, 1)
	return fmt.Sprintf(`assignee = %s AND status NOT IN (Closed, Done, Rejected, Resolved, "Deployed to production") `+
		`AND "end date[date]" >= %s AND "end date[date]" <= %s ORDER BY "end date[date]" ASC, priority DESC`,
		accountID, today.Format(time.DateOnly), tomorrow.Format(time.DateOnly))
}

type DueDateAlerter interface {
	// Run alerts every configured user with tickets due soon and returns how
	// many users were alerted. A failure for one user does not stop the others.
	Run(ctx context.Context) (int, error)
}

type dueDateAlerter struct {
	tracker   issue_tracker.IssueTrackerService
	publisher Publisher
	users     []config.AlertUser
	channelID string
	now       func() time.Time
}

// NewDueDateAlerter builds a DueDateAlerter. With an empty channelID each
// user is alerted by direct message. A nil now uses time.Now.
func NewDueDateAlerter(tracker issue_tracker.IssueTrackerService, publisher Publisher, users []config.AlertUser, channelID string, now func() time.Time) DueDateAlerter {
	if now == nil {
		now = time.Now
	}
	return &dueDateAlerter{tracker: tracker, publisher: publisher, users: users, channelID: channelID, now: now}
}

func (a *dueDateAlerter) Run(ctx context.Context) (int, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.service.due_date_alerter"})
	if len(a.users) == 0 {
		slog.DebugContext(ctx, "no users configured for due-date alerts")
		return 0, nil
	}

	today := a.now()
	alerted := 0
	var errs []error
	for _, u := range a.users {
		issues, err := a.tracker.SearchIssues(ctx, DueSoonQuery(u.JiraID, today))
		if err != nil {
			slog.ErrorContext(ctx, "due-date search failed", "user", u.Name, "error", err)
			errs = append(errs, fmt.Errorf("user %s: %w", u.Name, err))
			continue
		}
		if len(issues) == 0 {
			slog.DebugContext(ctx, "nothing due", "user", u.Name)
			continue
		}

		if err := a.publisher.Enqueue(ctx, a.notification(u, issues)); err != nil {
			slog.ErrorContext(ctx, "failed to queue due-date alert", "user", u.Name, "error", err)
			errs = append(errs, fmt.Errorf("user %s: %w", u.Name, err))
			continue
		}
		slog.InfoContext(ctx, "due-date alert queued", "user", u.Name, "tickets", len(issues))
		alerted++
	}

	return alerted, errors.Join(errs...)
}

func (a *dueDateAlerter) notification(u config.AlertUser, issues []model.Issue) notify.Notification {
	lines := make([]string, 0, len(issues))
	for _, issue := range issues {
		due := "no end date"
		if issue.EndDate != nil {
			due = "due " + *issue.EndDate
		}
		lines = append(lines, fmt.Sprintf("<%s|%s> %s (%s, %s)",
			a.tracker.BrowseURL(issue.Key), issue.Key, issue.Summary, issue.Status, due))
	}

	n := notify.Notification{
		Kind: notify.KindDueAlert,
		Payload: notify.Payload{
			Title: fmt.Sprintf("%d ticket(s) due today or tomorrow", len(issues)),
			Text:  fmt.Sprintf("<@%s>, these tickets are due soon:", u.SlackID),
			Lines: lines,
		},
	}
	if a.channelID != "" {
		n.ChannelID = a.channelID
	} else {
		n.ObserverID = u.SlackID
	}
	return n
}
