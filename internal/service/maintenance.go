package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
)

const sentReminderRetention = 7 * 24 * time.Hour

type MaintenanceResult struct {
	OrphanSnapshots int64
	SentReminders   int64
}

type MaintenanceService interface {
	Run(ctx context.Context) (MaintenanceResult, error)
}

type maintenanceService struct {
	txRunner  TxRunner
	reminders store.ReminderStore
	now       func() time.Time
}

// NewMaintenanceService builds a MaintenanceService. A nil now uses time.Now.
func NewMaintenanceService(txRunner TxRunner, reminders store.ReminderStore, now func() time.Time) MaintenanceService {
	if now == nil {
		now = time.Now
	}
	return &maintenanceService{txRunner: txRunner, reminders: reminders, now: now}
}

// Run deletes snapshots nobody watches and sent reminders past retention.
func (s *maintenanceService) Run(ctx context.Context) (MaintenanceResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.service.maintenance"})

	var res MaintenanceResult
	var err error
	if res.OrphanSnapshots, err = pruneOrphans(ctx, s.txRunner); err != nil {
		return res, fmt.Errorf("deleting orphan snapshots: %w", err)
	}
	if res.SentReminders, err = s.reminders.DeleteSentBefore(ctx, s.now().Add(-sentReminderRetention)); err != nil {
		return res, fmt.Errorf("pruning sent reminders: %w", err)
	}

	slog.InfoContext(ctx, "maintenance complete",
		"orphan_snapshots", res.OrphanSnapshots,
		"sent_reminders", res.SentReminders)
	return res, nil
}
