package automation

import (
	"slices"
	"strings"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/workflow"
)

// Signals summarise version-control activity for one ticket across all
// configured repositories.
type Signals struct {
	BranchFound   bool
	MergeRequests int
	Merged        int
}

func (s Signals) AllMerged() bool {
	return s.MergeRequests > 0 && s.Merged == s.MergeRequests
}

// Statuses at or past In Progress, where a bare branch is no reason to move.
var startedStatuses = map[workflow.IssueClass][]string{
	workflow.ClassGeneric: {"in progress", "in review", "dev testing", "done"},
	workflow.ClassStory:   {"in progress", "in review", "dev testing", "done"},
	workflow.ClassDefect:  {"in progress", "in review", "performing devtesting", "resolved"},
}

// Decide returns the status a ticket should move to, or false when it should
// stay where it is.
func Decide(current string, class workflow.IssueClass, sig Signals) (string, bool) {
	if !sig.BranchFound {
		return "", false
	}

	switch {
	case sig.AllMerged():
		target := workflow.StatusDevTesting
		if class == workflow.ClassDefect {
			target = workflow.StatusResolved
		}
		if strings.EqualFold(current, target) {
			return "", false
		}
		return target, true

	case sig.MergeRequests > 0:
		if strings.EqualFold(current, workflow.StatusInReview) {
			return "", false
		}
		return workflow.StatusInReview, true

	default:
		if slices.Contains(startedStatuses[class], strings.ToLower(current)) {
			return "", false
		}
		return workflow.StatusInProgress, true
	}
}
