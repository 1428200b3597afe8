// Package poller checks watched tickets for external changes in bounded
// batches and tells their observers what changed.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/snapshot"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
)

type Config struct {
	BatchSize    int
	BatchTimeout time.Duration
	FetchTimeout time.Duration
	BatchDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    5,
		BatchTimeout: 30 * time.Second,
		FetchTimeout: 8 * time.Second,
		BatchDelay:   time.Second,
	}
}

// Fetcher is the part of the issue tracker the poller reads from.
type Fetcher interface {
	FetchIssue(ctx context.Context, key string) (*model.Issue, error)
	BrowseURL(key string) string
}

// Registry is the part of the watch registry the poller needs.
type Registry interface {
	ListAllWatchedEntities(ctx context.Context) ([]string, error)
	ListObservers(ctx context.Context, key string) ([]model.Watch, error)
	RemoveAll(ctx context.Context, key string) (int, error)
}

type Publisher interface {
	Enqueue(ctx context.Context, n notify.Notification) error
}

// Result is the outcome of polling one ticket. Observers is only filled
// when Changes is non-empty.
type Result struct {
	Key       string
	Snapshot  *model.Snapshot
	Changes   []string
	Observers []model.Watch
	Err       error
	TimedOut  bool
	// Gone means the ticket no longer exists and its watches were removed.
	Gone bool
}

func (r Result) Changed() bool {
	return len(r.Changes) > 0
}

type Summary struct {
	Polled   int
	Changed  int
	Notified int
	Failed   int
	TimedOut int
	Gone     int
}

type Poller struct {
	cfg       Config
	tracker   Fetcher
	snapshots store.SnapshotStore
	registry  Registry
	publisher Publisher
}

func New(cfg Config, tracker Fetcher, snapshots store.SnapshotStore, registry Registry, publisher Publisher) *Poller {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = def.BatchTimeout
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	return &Poller{cfg: cfg, tracker: tracker, snapshots: snapshots, registry: registry, publisher: publisher}
}

// Run polls every watched ticket and queues one watch_change notification
// per changed ticket and observer.
func (p *Poller) Run(ctx context.Context) (Summary, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "updater.poller"})

	keys, err := p.registry.ListAllWatchedEntities(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing watched tickets: %w", err)
	}
	if len(keys) == 0 {
		slog.DebugContext(ctx, "no watched tickets")
		return Summary{}, nil
	}

	start := time.Now()
	results := p.PollAll(ctx, keys)

	sum := Summary{Polled: len(results)}
	for _, res := range results {
		switch {
		case res.Gone:
			sum.Gone++
		case res.TimedOut:
			sum.TimedOut++
		case res.Err != nil:
			sum.Failed++
		case res.Changed():
			sum.Changed++
			sum.Notified += p.notify(ctx, res)
		}
	}

	slog.InfoContext(ctx, "watch poll complete",
		"polled", sum.Polled,
		"changed", sum.Changed,
		"notified", sum.Notified,
		"failed", sum.Failed,
		"timed_out", sum.TimedOut,
		"gone", sum.Gone,
		"duration_ms", time.Since(start).Milliseconds())
	return sum, nil
}

func (p *Poller) notify(ctx context.Context, res Result) int {
	sent := 0
	for _, w := range res.Observers {
		n := notify.Notification{
			Kind:       notify.KindWatchChange,
			ObserverID: w.ObserverID,
			TicketKey:  res.Key,
			Payload: notify.Payload{
				Title:  fmt.Sprintf("%s: %s", res.Key, res.Snapshot.Title),
				URL:    p.tracker.BrowseURL(res.Key),
				Text:   "Changes detected on a ticket you are watching:",
				Lines:  res.Changes,
				Footer: "Current status: " + res.Snapshot.Status,
			},
		}
		if err := p.publisher.Enqueue(ctx, n); err != nil {
			slog.ErrorContext(ctx, "failed to queue watch notification",
				"ticket_key", res.Key,
				"observer_id", w.ObserverID,
				"error", err)
			continue
		}
		sent++
	}
	return sent
}

// PollAll polls keys in batches of BatchSize. Every key gets exactly one
// result, in input order. A fetch that outlives its batch is reported as
// timed out without holding up the rest of the batch.
func (p *Poller) PollAll(ctx context.Context, keys []string) []Result {
	results := make([]Result, 0, len(keys))
	for start := 0; start < len(keys); start += p.cfg.BatchSize {
		if start > 0 && p.cfg.BatchDelay > 0 {
			t := time.NewTimer(p.cfg.BatchDelay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			for _, key := range keys[start:] {
				results = append(results, Result{Key: key, Err: err})
			}
			return results
		}

		end := min(start+p.cfg.BatchSize, len(keys))
		results = append(results, p.pollBatch(ctx, keys[start:end])...)
	}
	return results
}

type indexedResult struct {
	i   int
	res Result
}

func (p *Poller) pollBatch(ctx context.Context, keys []string) []Result {
	bctx, cancel := context.WithTimeout(ctx, p.cfg.BatchTimeout)
	defer cancel()

	// Buffered so fetches that finish after the deadline never block.
	ch := make(chan indexedResult, len(keys))
	for i, key := range keys {
		go func() {
			ch <- indexedResult{i: i, res: p.pollOne(bctx, key)}
		}()
	}

	results := make([]Result, len(keys))
	finished := make([]bool, len(keys))
	for remaining := len(keys); remaining > 0; remaining-- {
		select {
		case r := <-ch:
			results[r.i] = r.res
			finished[r.i] = true
		case <-bctx.Done():
			// Results already sent lost the race with the deadline, not the fetch.
			drain(ch, results, finished)
			for i, key := range keys {
				if !finished[i] {
					slog.WarnContext(ctx, "fetch did not finish within the batch timeout", "ticket_key", key)
					results[i] = Result{Key: key, TimedOut: true, Err: bctx.Err()}
				}
			}
			return results
		}
	}
	return results
}

func drain(ch <-chan indexedResult, results []Result, finished []bool) {
	for {
		select {
		case r := <-ch:
			results[r.i] = r.res
			finished[r.i] = true
		default:
			return
		}
	}
}

func (p *Poller) pollOne(ctx context.Context, key string) Result {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()
	ctx = logger.WithLogFields(ctx, logger.LogFields{TicketKey: &key})

	issue, err := p.tracker.FetchIssue(ctx, key)
	if errors.Is(err, issue_tracker.ErrIssueNotFound) {
		n, rerr := p.registry.RemoveAll(ctx, key)
		if rerr != nil {
			slog.ErrorContext(ctx, "failed to drop watches of missing ticket", "error", rerr)
			return Result{Key: key, Err: rerr}
		}
		slog.InfoContext(ctx, "ticket no longer exists, watches removed", "watches", n)
		return Result{Key: key, Gone: true}
	}
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded)
		slog.WarnContext(ctx, "fetch failed", "error", err, "timed_out", timedOut)
		return Result{Key: key, Err: err, TimedOut: timedOut}
	}

	current := snapshot.FromIssue(*issue)
	res := Result{Key: key, Snapshot: &current}

	previous, err := p.snapshots.Get(ctx, key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		slog.DebugContext(ctx, "no previous snapshot, recording baseline")
	case err != nil:
		res.Err = fmt.Errorf("loading snapshot: %w", err)
		return res
	default:
		res.Changes = snapshot.Diff(current, *previous)
	}

	if res.Changed() {
		observers, err := p.registry.ListObservers(ctx, key)
		if err != nil {
			res.Err = fmt.Errorf("listing observers: %w", err)
			return res
		}
		res.Observers = observers
		slog.InfoContext(ctx, "ticket changed", "changes", res.Changes, "observers", len(observers))
	}

	// Past the deadline the result is discarded, so the snapshot must not move.
	if err := ctx.Err(); err != nil {
		res.Err = err
		res.TimedOut = true
		return res
	}
	if err := p.snapshots.Save(ctx, current); err != nil {
		res.Err = fmt.Errorf("saving snapshot: %w", err)
		return res
	}
	return res
}
