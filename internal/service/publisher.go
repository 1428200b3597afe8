package service

import (
	"context"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

// Publisher queues a notification for asynchronous delivery.
type Publisher interface {
	Enqueue(ctx context.Context, n notify.Notification) error
}
