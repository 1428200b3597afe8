package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/scheduler"
)

var _ = Describe("TaskSet", func() {
	var (
		ctx   context.Context
		tasks *scheduler.TaskSet
	)

	BeforeEach(func() {
		ctx = context.Background()
		tasks = scheduler.NewTaskSet(2)
	})

	It("does not launch a unit that is still running", func() {
		release := make(chan struct{})
		var runs atomic.Int32
		block := func(context.Context) error {
			runs.Add(1)
			<-release
			return nil
		}

		Expect(tasks.Launch(ctx, "poll", block)).To(BeTrue())
		Expect(tasks.Launch(ctx, "poll", block)).To(BeFalse())
		Expect(tasks.Running("poll")).To(BeTrue())

		close(release)
		Expect(tasks.Wait(ctx)).To(Succeed())
		Expect(runs.Load()).To(Equal(int32(1)))
		Expect(tasks.Running("poll")).To(BeFalse())
		Expect(tasks.Launch(ctx, "poll", block)).To(BeTrue())
		Expect(tasks.Wait(ctx)).To(Succeed())
	})

	It("runs different units side by side", func() {
		release := make(chan struct{})
		var started atomic.Int32
		block := func(context.Context) error {
			started.Add(1)
			<-release
			return nil
		}

		tasks.Launch(ctx, "a", block)
		tasks.Launch(ctx, "b", block)
		Eventually(started.Load).Should(Equal(int32(2)))

		close(release)
		Expect(tasks.Wait(ctx)).To(Succeed())
	})

	It("keeps other units alive when one panics or fails", func() {
		var ok atomic.Bool
		tasks.Launch(ctx, "boom", func(context.Context) error { panic("bad unit") })
		tasks.Launch(ctx, "fail", func(context.Context) error { return errors.New("failed") })
		tasks.Launch(ctx, "fine", func(context.Context) error {
			ok.Store(true)
			return nil
		})

		Expect(tasks.Wait(ctx)).To(Succeed())
		Expect(ok.Load()).To(BeTrue())
		Expect(tasks.Running("boom")).To(BeFalse())
	})

	It("stops waiting when the context ends", func() {
		release := make(chan struct{})
		defer close(release)
		tasks.Launch(ctx, "slow", func(context.Context) error {
			<-release
			return nil
		})

		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		Expect(tasks.Wait(waitCtx)).To(MatchError(context.DeadlineExceeded))
	})
})
