package issue_tracker

import (
	"context"
	"errors"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

// ErrIssueNotFound is returned when the tracker reports the issue does not
// exist or is no longer visible to the configured account.
var ErrIssueNotFound = errors.New("issue not found")

type IssueTrackerService interface {
	FetchIssue(ctx context.Context, key string) (*model.Issue, error)
	SearchIssues(ctx context.Context, jql string) ([]model.Issue, error)
	ListTransitions(ctx context.Context, key string) ([]model.Transition, error)
	ApplyTransition(ctx context.Context, key, transitionID string) error
	// FetchParent returns nil, nil when the issue has no parent.
	FetchParent(ctx context.Context, issue model.Issue) (*model.Issue, error)
	BrowseURL(key string) string
}
