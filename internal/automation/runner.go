// Package automation moves tickets through their workflow based on branch
// and merge request activity.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/integration"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/workflow"
)

// Parents at any of these statuses are left alone.
var parentSettled = []string{"in progress", "dev testing", "resolved", "done"}

type Config struct {
	Repositories  []string
	Queries       []string
	Concurrency   int
	ParentTimeout time.Duration
	// StatusChannelID receives the per-run summary of status changes.
	StatusChannelID string
	// LogsChannelID receives the run's log lines. Requires a log buffer.
	LogsChannelID string
}

type Publisher interface {
	Enqueue(ctx context.Context, n notify.Notification) error
}

type StatusChange struct {
	Key  string `json:"key"`
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
	URL  string `json:"url"`
}

type Summary struct {
	Candidates int
	Changed    int
	Failed     int
	Changes    []StatusChange
}

type Runner struct {
	cfg       Config
	tracker   issue_tracker.IssueTrackerService
	repos     integration.RepositorySource
	executor  *workflow.Executor
	publisher Publisher
	logs      *logger.ChannelBuffer
}

// NewRunner builds a Runner. logs may be nil, in which case no log digest
// is posted.
func NewRunner(cfg Config, tracker issue_tracker.IssueTrackerService, repos integration.RepositorySource, publisher Publisher, logs *logger.ChannelBuffer) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.ParentTimeout <= 0 {
		cfg.ParentTimeout = 15 * time.Second
	}
	return &Runner{
		cfg:       cfg,
		tracker:   tracker,
		repos:     repos,
		executor:  workflow.NewExecutor(tracker),
		publisher: publisher,
		logs:      logs,
	}
}

// Run processes every candidate ticket once. Failures on one ticket are
// logged and counted; the run only fails when no candidates can be listed.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.automation"})
	sc := logger.StartSpan(ctx, "automation.run")
	defer sc.End()
	ctx = sc.Context()

	if r.logs != nil {
		r.logs.Start()
		defer r.postLogDigest(ctx)
	}

	start := time.Now()
	slog.InfoContext(ctx, "automation run started", "repositories", r.cfg.Repositories)

	candidates, err := r.candidates(ctx)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu  sync.Mutex
		sum = Summary{Candidates: len(candidates)}
	)
	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Concurrency)
	for _, issue := range candidates {
		g.Go(func() error {
			change, changed, err := r.process(ctx, issue, r.cfg.Repositories)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sum.Failed++
				slog.ErrorContext(ctx, "failed to process ticket", "ticket_key", issue.Key, "error", err)
			}
			if changed {
				sum.Changed++
				sum.Changes = append(sum.Changes, change)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(sum.Changes, func(a, b StatusChange) int { return strings.Compare(a.Key, b.Key) })

	slog.InfoContext(ctx, "automation run complete",
		"candidates", sum.Candidates,
		"changed", sum.Changed,
		"failed", sum.Failed,
		"duration_ms", time.Since(start).Milliseconds())

	r.postSummary(ctx, sum.Changes)
	return sum, nil
}

// candidates runs each configured query and merges the results by key.
func (r *Runner) candidates(ctx context.Context) ([]model.Issue, error) {
	seen := map[string]bool{}
	var out []model.Issue
	failed := 0
	for _, q := range r.cfg.Queries {
		issues, err := r.tracker.SearchIssues(ctx, q)
		if err != nil {
			failed++
			slog.ErrorContext(ctx, "candidate query failed", "jql", q, "error", err)
			continue
		}
		for _, issue := range issues {
			if !seen[issue.Key] {
				seen[issue.Key] = true
				out = append(out, issue)
			}
		}
	}
	if failed > 0 && failed == len(r.cfg.Queries) {
		return nil, fmt.Errorf("all %d candidate queries failed", failed)
	}
	slog.InfoContext(ctx, "found candidate tickets", "count", len(out))
	return out, nil
}

// Process moves one ticket to the status its branch and merge requests call
// for and reports whether its status changed. Running it again without new
// version-control activity changes nothing.
func (r *Runner) Process(ctx context.Context, issue model.Issue, repos []string) (bool, error) {
	_, changed, err := r.process(ctx, issue, repos)
	return changed, err
}

func (r *Runner) process(ctx context.Context, issue model.Issue, repos []string) (StatusChange, bool, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketKey: &issue.Key})

	sig, err := r.gatherSignals(ctx, issue.Key, repos)
	if err != nil {
		return StatusChange{}, false, err
	}

	class := workflow.Classify(issue.Type)
	target, ok := Decide(issue.Status, class, sig)
	if !ok {
		slog.DebugContext(ctx, "no status change needed",
			"status", issue.Status,
			"branch", sig.BranchFound,
			"merge_requests", sig.MergeRequests,
			"merged", sig.Merged)
		return StatusChange{}, false, nil
	}

	out, err := r.executor.Transition(ctx, issue, target)
	if !out.Changed() {
		return StatusChange{}, false, err
	}

	change := StatusChange{
		Key:  issue.Key,
		Type: issue.Type,
		From: issue.Status,
		To:   out.Status,
		URL:  r.tracker.BrowseURL(issue.Key),
	}
	slog.InfoContext(ctx, "status changed", "from", change.From, "to", change.To)

	r.propagateToParent(ctx, issue)
	return change, true, err
}

func (r *Runner) gatherSignals(ctx context.Context, key string, repos []string) (Signals, error) {
	var sig Signals
	for _, repo := range repos {
		branch, found, err := r.repos.FindBranch(ctx, repo, key)
		if err != nil {
			return Signals{}, fmt.Errorf("finding branch in %s: %w", repo, err)
		}
		if !found {
			continue
		}
		sig.BranchFound = true
		slog.DebugContext(ctx, "branch found", "repository", repo, "branch", branch)

		mrs, err := r.repos.FindMergeRequests(ctx, repo, key)
		if err != nil {
			return Signals{}, fmt.Errorf("finding merge requests in %s: %w", repo, err)
		}
		for _, mr := range mrs {
			sig.MergeRequests++
			if mr.IsMerged() {
				sig.Merged++
			}
		}
	}
	return sig, nil
}

// propagateToParent starts the parent when a child moves. Failures are
// logged only.
func (r *Runner) propagateToParent(ctx context.Context, child model.Issue) {
	if !child.HasParent() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.ParentTimeout)
	defer cancel()

	parent, err := r.tracker.FetchParent(ctx, child)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch parent", "parent_key", child.ParentKey, "error", err)
		return
	}
	if parent == nil {
		return
	}
	if slices.Contains(parentSettled, strings.ToLower(parent.Status)) {
		slog.DebugContext(ctx, "parent already started", "parent_key", parent.Key, "status", parent.Status)
		return
	}

	out, err := r.executor.Transition(ctx, *parent, workflow.StatusInProgress)
	if err != nil {
		slog.WarnContext(ctx, "failed to move parent", "parent_key", parent.Key, "error", err)
		return
	}
	if out.Changed() {
		slog.InfoContext(ctx, "parent moved", "parent_key", parent.Key, "from", parent.Status, "to", out.Status)
	}
}

func (r *Runner) postSummary(ctx context.Context, changes []StatusChange) {
	if len(changes) == 0 || r.cfg.StatusChannelID == "" {
		return
	}

	lines := make([]string, len(changes))
	for i, c := range changes {
		lines[i] = fmt.Sprintf("<%s|%s> (%s): %s → %s", c.URL, c.Key, c.Type, c.From, c.To)
	}
	n := notify.Notification{
		Kind:      notify.KindStatusSummary,
		ChannelID: r.cfg.StatusChannelID,
		Payload: notify.Payload{
			Title:  fmt.Sprintf("%d ticket status update(s)", len(changes)),
			Lines:  lines,
			Footer: "Automated from branch and merge request activity",
		},
	}
	if err := r.publisher.Enqueue(ctx, n); err != nil {
		slog.ErrorContext(ctx, "failed to queue status summary", "error", err)
	}
}

func (r *Runner) postLogDigest(ctx context.Context) {
	lines := r.logs.Drain()
	if len(lines) == 0 || r.cfg.LogsChannelID == "" {
		return
	}
	for _, chunk := range notify.ChunkLines(lines, notify.LogChunkLength) {
		n := notify.Notification{
			Kind:      notify.KindLogDigest,
			ChannelID: r.cfg.LogsChannelID,
			Payload:   notify.Payload{Text: "```\n" + chunk + "\n```"},
		}
		if err := r.publisher.Enqueue(ctx, n); err != nil {
			slog.ErrorContext(ctx, "failed to queue log digest", "error", err)
			return
		}
	}
}
