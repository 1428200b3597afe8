package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
)

// TaskSet runs named units in the background. At most limit units run at
// once, a unit is never run twice concurrently, and a panicking unit only
// takes itself down. Launched units are tracked until they finish.
type TaskSet struct {
	sem     *semaphore.Weighted
	mu      sync.Mutex
	running map[string]bool
	wg      sync.WaitGroup
}

func NewTaskSet(limit int) *TaskSet {
	if limit <= 0 {
		limit = 1
	}
	return &TaskSet{
		sem:     semaphore.NewWeighted(int64(limit)),
		running: map[string]bool{},
	}
}

// Launch starts fn in the background and returns immediately. It returns
// false, without starting anything, when a unit with the same name is still
// running or waiting for a slot.
func (s *TaskSet) Launch(ctx context.Context, name string, fn func(ctx context.Context) error) bool {
	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		return false
	}
	s.running[name] = true
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer s.finish(name)

		if err := s.sem.Acquire(ctx, 1); err != nil {
			slog.WarnContext(ctx, "unit cancelled before it started", "unit", name)
			return
		}
		defer s.sem.Release(1)

		s.run(ctx, name, fn)
	}()
	return true
}

func (s *TaskSet) run(ctx context.Context, name string, fn func(ctx context.Context) error) {
	sc := logger.StartSpan(ctx, "scheduler.unit."+name)
	defer sc.End()
	ctx = sc.Context()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "unit panicked",
				"unit", name,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	if err := fn(ctx); err != nil {
		slog.ErrorContext(ctx, "unit failed",
			"unit", name,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds())
		return
	}
	slog.InfoContext(ctx, "unit finished",
		"unit", name,
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *TaskSet) finish(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}

// Running reports whether the named unit is running or waiting for a slot.
func (s *TaskSet) Running(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[name]
}

// Wait blocks until every launched unit has finished or ctx is done.
func (s *TaskSet) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
