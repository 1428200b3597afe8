package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/automation"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

type emptyTracker struct{}

func (emptyTracker) FetchIssue(context.Context, string) (*model.Issue, error) { return nil, nil }
func (emptyTracker) SearchIssues(context.Context, string) ([]model.Issue, error) {
	return nil, nil
}
func (emptyTracker) ListTransitions(context.Context, string) ([]model.Transition, error) {
	return nil, nil
}
func (emptyTracker) ApplyTransition(context.Context, string, string) error { return nil }
func (emptyTracker) FetchParent(context.Context, model.Issue) (*model.Issue, error) {
	return nil, nil
}
func (emptyTracker) BrowseURL(key string) string { return "https://jira.example.com/browse/" + key }

type noRepos struct{}

func (noRepos) FindBranch(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}
func (noRepos) FindMergeRequests(context.Context, string, string) ([]model.MergeRequest, error) {
	return nil, nil
}

type discardPublisher struct{}

func (discardPublisher) Enqueue(context.Context, notify.Notification) error { return nil }

var _ = Describe("newJobs", func() {
	It("logs one summary per automation run", func() {
		var buf bytes.Buffer
		previous := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
		DeferCleanup(func() { slog.SetDefault(previous) })

		runner := automation.NewRunner(automation.Config{Queries: []string{"project = PAY"}},
			emptyTracker{}, noRepos{}, discardPublisher{}, nil)
		jobs := newJobs(runner, nil, nil)

		Expect(jobs.Automation(context.Background())).To(Succeed())
		Expect(strings.Count(buf.String(), "automation run complete")).To(Equal(1))
	})
})
