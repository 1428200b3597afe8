package snapshot_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/snapshot"
)

var _ = Describe("Diff", func() {
	base := func() model.Snapshot {
		return model.Snapshot{
			TicketKey:    "PAY-12",
			Status:       "In Progress",
			Title:        "Fix rounding",
			Description:  logger.Ptr("Totals are off by a cent"),
			Assignee:     logger.Ptr("Asha"),
			LastModified: "2026-10-01T10:00:00.000+0000",
		}
	}

	DescribeTable("is empty for identical snapshots",
		func(mutate func(*model.Snapshot)) {
			s := base()
			mutate(&s)
			other := s
			Expect(snapshot.Diff(s, other)).To(BeEmpty())
		},
		Entry("fully populated", func(*model.Snapshot) {}),
		Entry("nil description", func(s *model.Snapshot) { s.Description = nil }),
		Entry("nil assignee", func(s *model.Snapshot) { s.Assignee = nil }),
	)

	It("ignores last-modified on its own", func() {
		prev := base()
		cur := base()
		cur.LastModified = "2026-10-02T10:00:00.000+0000"
		Expect(snapshot.Diff(cur, prev)).To(BeEmpty())
	})

	It("reports every tracked field in fixed order", func() {
		prev := base()
		cur := base()
		cur.Status = "In Review"
		cur.Title = "Fix rounding in totals"
		cur.Description = logger.Ptr("Totals are off")
		cur.Assignee = logger.Ptr("Ravi")

		Expect(snapshot.Diff(cur, prev)).To(Equal([]string{
			"Status: In Progress → In Review",
			"Summary changed",
			"Description changed",
			"Assignee: Asha → Ravi",
		}))
	})

	It("renders a missing assignee as Unassigned", func() {
		prev := base()
		cur := base()
		cur.Assignee = nil
		Expect(snapshot.Diff(cur, prev)).To(Equal([]string{"Assignee: Asha → Unassigned"}))
		Expect(snapshot.Diff(prev, cur)).To(Equal([]string{"Assignee: Unassigned → Asha"}))
	})

	It("treats a description appearing as a change", func() {
		prev := base()
		prev.Description = nil
		Expect(snapshot.Diff(base(), prev)).To(Equal([]string{"Description changed"}))
	})
})

var _ = Describe("FromIssue", func() {
	It("projects the tracked fields", func() {
		issue := model.Issue{
			Key:          "PAY-12",
			Type:         "Sub-task",
			Status:       "Open",
			Summary:      "Fix rounding",
			Assignee:     logger.Ptr("Asha"),
			LastModified: "x",
		}
		s := snapshot.FromIssue(issue)
		Expect(s.TicketKey).To(Equal("PAY-12"))
		Expect(s.Status).To(Equal("Open"))
		Expect(s.Title).To(Equal("Fix rounding"))
		Expect(s.Description).To(BeNil())
		Expect(*s.Assignee).To(Equal("Asha"))
		Expect(s.LastModified).To(Equal("x"))
		Expect(s.UpdatedAt).NotTo(BeZero())
	})

	It("fills an empty summary", func() {
		Expect(snapshot.FromIssue(model.Issue{Key: "A-1"}).Title).To(Equal("No summary"))
	})
})
