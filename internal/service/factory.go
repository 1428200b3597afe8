package service

import (
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
)

type Services struct {
	stores    *store.Stores
	txRunner  TxRunner
	tracker   issue_tracker.IssueTrackerService
	publisher Publisher
	cfg       config.Config
}

func NewServices(stores *store.Stores, txRunner TxRunner, tracker issue_tracker.IssueTrackerService, publisher Publisher, cfg config.Config) *Services {
	return &Services{
		stores:    stores,
		txRunner:  txRunner,
		tracker:   tracker,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *Services) Watches() WatchRegistry {
	return NewWatchRegistry(s.tracker, s.stores, s.txRunner)
}

func (s *Services) Reminders() ReminderService {
	return NewReminderService(s.stores.Reminders(), s.publisher, nil)
}

func (s *Services) DueDateAlerts() DueDateAlerter {
	return NewDueDateAlerter(s.tracker, s.publisher, s.cfg.Automation.Users, s.cfg.Slack.AlertsChannelID, nil)
}

func (s *Services) Maintenance() MaintenanceService {
	return NewMaintenanceService(s.txRunner, s.stores.Reminders(), nil)
}
