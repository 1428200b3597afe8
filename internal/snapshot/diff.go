// Package snapshot computes field-level changes between two projections of a
// watched ticket.
package snapshot

import (
	"fmt"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

const (
	unassigned = "Unassigned"
	noSummary  = "No summary"
)

// FromIssue projects the tracked fields of an issue.
func FromIssue(issue model.Issue) model.Snapshot {
	title := issue.Summary
	if title == "" {
		title = noSummary
	}
	return model.Snapshot{
		TicketKey:    issue.Key,
		Status:       issue.Status,
		Title:        title,
		Description:  issue.Description,
		Assignee:     issue.Assignee,
		LastModified: issue.LastModified,
		UpdatedAt:    time.Now().UTC(),
	}
}

// Diff returns human-readable descriptions of what changed from previous to
// current, in a fixed order: status, summary, description, assignee.
// Title and description contents are not echoed.
func Diff(current, previous model.Snapshot) []string {
	changes := []string{}

	if current.Status != previous.Status {
		changes = append(changes, fmt.Sprintf("Status: %s → %s", previous.Status, current.Status))
	}
	if current.Title != previous.Title {
		changes = append(changes, "Summary changed")
	}
	if !equalPtr(current.Description, previous.Description) {
		changes = append(changes, "Description changed")
	}
	if !equalPtr(current.Assignee, previous.Assignee) {
		changes = append(changes, fmt.Sprintf("Assignee: %s → %s",
			orDefault(previous.Assignee, unassigned),
			orDefault(current.Assignee, unassigned)))
	}

	return changes
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
