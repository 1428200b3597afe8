package main

import (
	"context"
	"log/slog"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/automation"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/poller"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/scheduler"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
)

// newJobs adapts the engine's components to scheduler units.
func newJobs(runner *automation.Runner, watchPoller *poller.Poller, services *service.Services) scheduler.Jobs {
	return scheduler.Jobs{
		Automation: func(ctx context.Context) error {
			// The runner logs its own summary.
			_, err := runner.Run(ctx)
			return err
		},
		DailyAlert: func(ctx context.Context) error {
			alerted, err := services.DueDateAlerts().Run(ctx)
			slog.InfoContext(ctx, "due-date alerts sent", "users", alerted)
			return err
		},
		WatchPoll: func(ctx context.Context) error {
			sum, err := watchPoller.Run(ctx)
			if err != nil {
				return err
			}
			if sum.Polled > 0 {
				slog.InfoContext(ctx, "watch poll complete",
					"polled", sum.Polled,
					"changed", sum.Changed,
					"notified", sum.Notified,
					"failed", sum.Failed,
					"timed_out", sum.TimedOut,
					"gone", sum.Gone)
			}
			return nil
		},
		Reminders: func(ctx context.Context) error {
			sent, err := services.Reminders().DispatchDue(ctx)
			if sent > 0 {
				slog.InfoContext(ctx, "reminders dispatched", "count", sent)
			}
			return err
		},
		Maintenance: func(ctx context.Context) error {
			res, err := services.Maintenance().Run(ctx)
			slog.InfoContext(ctx, "maintenance complete",
				"orphan_snapshots", res.OrphanSnapshots,
				"sent_reminders", res.SentReminders)
			return err
		},
	}
}
