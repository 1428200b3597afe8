package automation_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/workflow"
)

// workflowTracker offers exactly the transitions the ticket's graph allows
// from its current status, using the action name as the transition id.
type workflowTracker struct {
	mu      sync.Mutex
	issues  map[string]*model.Issue
	queries map[string][]string
	applied map[string][]string
	// withhold makes the tracker refuse to offer these actions.
	withhold  map[string]bool
	searchErr error
}

func newWorkflowTracker(issues ...model.Issue) *workflowTracker {
	t := &workflowTracker{
		issues:   map[string]*model.Issue{},
		queries:  map[string][]string{},
		applied:  map[string][]string{},
		withhold: map[string]bool{},
	}
	for i := range issues {
		issue := issues[i]
		t.issues[issue.Key] = &issue
	}
	return t
}

func (t *workflowTracker) status(key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.issues[key].Status
}

func (t *workflowTracker) FetchIssue(_ context.Context, key string) (*model.Issue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	issue, ok := t.issues[key]
	if !ok {
		return nil, errors.New("no such issue")
	}
	cp := *issue
	return &cp, nil
}

func (t *workflowTracker) SearchIssues(_ context.Context, jql string) ([]model.Issue, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.searchErr != nil {
		return nil, t.searchErr
	}
	var out []model.Issue
	for _, key := range t.queries[jql] {
		out = append(out, *t.issues[key])
	}
	return out, nil
}

func (t *workflowTracker) ListTransitions(_ context.Context, key string) ([]model.Transition, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	issue := t.issues[key]
	var out []model.Transition
	for _, e := range workflow.GraphForType(issue.Type).Edges() {
		if strings.EqualFold(e.From, issue.Status) && !t.withhold[e.Action] {
			out = append(out, model.Transition{ID: e.Action, Name: e.Action, To: e.To})
		}
	}
	return out, nil
}

func (t *workflowTracker) ApplyTransition(_ context.Context, key, transitionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	issue := t.issues[key]
	for _, e := range workflow.GraphForType(issue.Type).Edges() {
		if strings.EqualFold(e.From, issue.Status) && e.Action == transitionID {
			issue.Status = e.To
			t.applied[key] = append(t.applied[key], transitionID)
			return nil
		}
	}
	return errors.New("transition not valid")
}

func (t *workflowTracker) FetchParent(ctx context.Context, issue model.Issue) (*model.Issue, error) {
	if issue.ParentKey == "" {
		return nil, nil
	}
	return t.FetchIssue(ctx, issue.ParentKey)
}

func (t *workflowTracker) BrowseURL(key string) string {
	return "https://jira.example.com/browse/" + key
}

type fakeRepos struct {
	branches map[string]bool
	mrs      map[string][]model.MergeRequest
	err      error
}

func repoKey(repo, key string) string { return repo + "/" + key }

func (f *fakeRepos) FindBranch(_ context.Context, repo, key string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	if f.branches[repoKey(repo, key)] {
		return "feature/" + key, true, nil
	}
	return "", false, nil
}

func (f *fakeRepos) FindMergeRequests(_ context.Context, repo, key string) ([]model.MergeRequest, error) {
	return f.mrs[repoKey(repo, key)], nil
}

type fakePublisher struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (f *fakePublisher) Enqueue(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakePublisher) byKind(kind notify.Kind) []notify.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Notification
	for _, n := range f.sent {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}
