package automation_test

import (
	"context"
	"errors"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/automation"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

var _ = Describe("Runner", func() {
	const (
		subtasks = "subtasks"
		bugs     = "bugs"
	)

	var (
		ctx       context.Context
		tracker   *workflowTracker
		repos     *fakeRepos
		publisher *fakePublisher
		cfg       automation.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		repos = &fakeRepos{branches: map[string]bool{}, mrs: map[string][]model.MergeRequest{}}
		publisher = &fakePublisher{}
		cfg = automation.Config{
			Repositories:    []string{"web", "api"},
			Queries:         []string{subtasks, bugs},
			Concurrency:     2,
			StatusChannelID: "C-STATUS",
		}
	})

	newRunner := func() *automation.Runner {
		return automation.NewRunner(cfg, tracker, repos, publisher, nil)
	}

	Describe("Process", func() {
		It("walks a defect with merged work all the way to Resolved", func() {
			tracker = newWorkflowTracker(model.Issue{Key: "BUG-1", Type: "Bug", Status: "Open"})
			repos.branches["api/BUG-1"] = true
			repos.mrs["api/BUG-1"] = []model.MergeRequest{{State: model.MergeRequestStateMerged}}

			changed, err := newRunner().Process(ctx, model.Issue{Key: "BUG-1", Type: "Bug", Status: "Open"}, cfg.Repositories)

			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeTrue())
			Expect(tracker.status("BUG-1")).To(Equal("Resolved"))
			Expect(tracker.applied["BUG-1"]).To(HaveLen(5))
		})

		It("is idempotent", func() {
			tracker = newWorkflowTracker(model.Issue{Key: "PAY-1", Type: "Sub-task", Status: "Open"})
			repos.branches["web/PAY-1"] = true
			runner := newRunner()

			first, err := runner.Process(ctx, model.Issue{Key: "PAY-1", Type: "Sub-task", Status: "Open"}, cfg.Repositories)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(BeTrue())

			current, _ := tracker.FetchIssue(ctx, "PAY-1")
			second, err := runner.Process(ctx, *current, cfg.Repositories)
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(BeFalse())
			Expect(tracker.status("PAY-1")).To(Equal("In Progress"))
		})

		It("counts merge requests across repositories", func() {
			tracker = newWorkflowTracker(model.Issue{Key: "PAY-2", Type: "Task", Status: "In Progress"})
			repos.branches["web/PAY-2"] = true
			repos.branches["api/PAY-2"] = true
			repos.mrs["web/PAY-2"] = []model.MergeRequest{{State: model.MergeRequestStateMerged}}
			repos.mrs["api/PAY-2"] = []model.MergeRequest{{State: model.MergeRequestStateOpen}}

			changed, err := newRunner().Process(ctx, model.Issue{Key: "PAY-2", Type: "Task", Status: "In Progress"}, cfg.Repositories)
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeTrue())
			Expect(tracker.status("PAY-2")).To(Equal("In Review"))
		})

		It("starts an idle parent when a sub-task moves", func() {
			tracker = newWorkflowTracker(
				model.Issue{Key: "PAY-10", Type: "Story", Status: "Handshake Done"},
				model.Issue{Key: "PAY-11", Type: "Sub-task", Status: "Open", ParentKey: "PAY-10"},
			)
			repos.branches["web/PAY-11"] = true

			changed, err := newRunner().Process(ctx, model.Issue{Key: "PAY-11", Type: "Sub-task", Status: "Open", ParentKey: "PAY-10"}, cfg.Repositories)
			Expect(err).NotTo(HaveOccurred())
			Expect(changed).To(BeTrue())
			Expect(tracker.status("PAY-10")).To(Equal("In Progress"))
		})

		It("leaves a parent that is already further along", func() {
			tracker = newWorkflowTracker(
				model.Issue{Key: "PAY-10", Type: "Story", Status: "Dev Testing"},
				model.Issue{Key: "PAY-11", Type: "Sub-task", Status: "Open", ParentKey: "PAY-10"},
			)
			repos.branches["web/PAY-11"] = true

			_, err := newRunner().Process(ctx, model.Issue{Key: "PAY-11", Type: "Sub-task", Status: "Open", ParentKey: "PAY-10"}, cfg.Repositories)
			Expect(err).NotTo(HaveOccurred())
			Expect(tracker.applied["PAY-10"]).To(BeEmpty())
		})

		It("reports partial progress when a step is not offered", func() {
			tracker = newWorkflowTracker(model.Issue{Key: "BUG-2", Type: "Bug", Status: "Open"})
			tracker.withhold["Move for code review"] = true
			repos.branches["web/BUG-2"] = true
			repos.mrs["web/BUG-2"] = []model.MergeRequest{{State: model.MergeRequestStateOpen}}

			changed, err := newRunner().Process(ctx, model.Issue{Key: "BUG-2", Type: "Bug", Status: "Open"}, cfg.Repositories)
			Expect(err).To(HaveOccurred())
			Expect(changed).To(BeTrue())
			Expect(tracker.status("BUG-2")).To(Equal("In Progress"))
		})

		It("fails without guessing when the repository lookup fails", func() {
			tracker = newWorkflowTracker(model.Issue{Key: "PAY-3", Type: "Task", Status: "Open"})
			repos.err = errors.New("bitbucket 500")

			changed, err := newRunner().Process(ctx, model.Issue{Key: "PAY-3", Type: "Task", Status: "Open"}, cfg.Repositories)
			Expect(err).To(MatchError(ContainSubstring("bitbucket 500")))
			Expect(changed).To(BeFalse())
		})
	})

	Describe("Run", func() {
		BeforeEach(func() {
			tracker = newWorkflowTracker(
				model.Issue{Key: "PAY-1", Type: "Sub-task", Status: "Open"},
				model.Issue{Key: "PAY-2", Type: "Sub-task", Status: "In Progress"},
				model.Issue{Key: "BUG-7", Type: "Bug", Status: "In Review"},
			)
			tracker.queries[subtasks] = []string{"PAY-1", "PAY-2"}
			tracker.queries[bugs] = []string{"BUG-7", "PAY-1"}
			repos.branches["web/PAY-1"] = true
			repos.branches["api/BUG-7"] = true
			repos.mrs["api/BUG-7"] = []model.MergeRequest{{State: model.MergeRequestStateMerged}}
		})

		It("processes each candidate once and posts a summary", func() {
			sum, err := newRunner().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Candidates).To(Equal(3))
			Expect(sum.Changed).To(Equal(2))
			Expect(sum.Failed).To(BeZero())
			Expect(sum.Changes).To(Equal([]automation.StatusChange{
				{Key: "BUG-7", Type: "Bug", From: "In Review", To: "Resolved", URL: "https://jira.example.com/browse/BUG-7"},
				{Key: "PAY-1", Type: "Sub-task", From: "Open", To: "In Progress", URL: "https://jira.example.com/browse/PAY-1"},
			}))

			summaries := publisher.byKind(notify.KindStatusSummary)
			Expect(summaries).To(HaveLen(1))
			Expect(summaries[0].ChannelID).To(Equal("C-STATUS"))
			Expect(summaries[0].Payload.Lines).To(ContainElement(
				"<https://jira.example.com/browse/PAY-1|PAY-1> (Sub-task): Open → In Progress"))
		})

		It("posts nothing when no ticket moved", func() {
			repos.branches = map[string]bool{}
			sum, err := newRunner().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Changed).To(BeZero())
			Expect(publisher.sent).To(BeEmpty())
		})

		It("counts per-ticket failures without stopping", func() {
			tracker.withhold["Code review submission"] = true

			sum, err := newRunner().Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Failed).To(Equal(1))
			Expect(sum.Changed).To(Equal(1))
		})

		It("fails when every candidate query fails", func() {
			tracker.searchErr = errors.New("jira down")
			_, err := newRunner().Run(ctx)
			Expect(err).To(HaveOccurred())
		})

		It("posts the run's log lines to the logs channel", func() {
			buf := logger.NewChannelBuffer(slog.LevelInfo, 0)
			prev := slog.Default()
			slog.SetDefault(slog.New(buf))
			DeferCleanup(func() { slog.SetDefault(prev) })

			cfg.LogsChannelID = "C-LOGS"
			runner := automation.NewRunner(cfg, tracker, repos, publisher, buf)
			_, err := runner.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			digests := publisher.byKind(notify.KindLogDigest)
			Expect(digests).NotTo(BeEmpty())
			Expect(digests[0].ChannelID).To(Equal("C-LOGS"))
			Expect(digests[0].Payload.Text).To(ContainSubstring("automation run started"))
		})
	})
})
