package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
)

var _ = Describe("NormalizeTicketKey", func() {
	DescribeTable("accepts ticket-shaped keys",
		func(in, want string) {
			got, err := service.NormalizeTicketKey(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("already normalized", "PAY-12", "PAY-12"),
		Entry("lower case", "pay-12", "PAY-12"),
		Entry("surrounding space", "  ops-7 \n", "OPS-7"),
		Entry("project with digits", "ab2-100", "AB2-100"),
	)

	DescribeTable("rejects everything else",
		func(in string) {
			_, err := service.NormalizeTicketKey(in)
			Expect(err).To(MatchError(service.ErrInvalidTicketKey))
		},
		Entry("empty", ""),
		Entry("no dash", "PAY12"),
		Entry("leading dash", "-12"),
		Entry("trailing dash", "PAY-"),
		Entry("inner space", "PAY 12-3"),
		Entry("url", "https://jira/browse/PAY-1"),
	)
})

var _ = Describe("WatchRegistry", func() {
	var (
		ctx      context.Context
		stores   *memStores
		tx       *memTxRunner
		tracker  *mockTracker
		registry service.WatchRegistry
		asha     = model.Observer{ID: "U1", Name: "Asha"}
		bilal    = model.Observer{ID: "U2", Name: "Bilal"}
	)

	BeforeEach(func() {
		ctx = context.Background()
		stores = newMemStores()
		tx = &memTxRunner{stores: stores}
		tracker = &mockTracker{}
		registry = service.NewWatchRegistry(tracker, stores, tx)
	})

	Describe("Register", func() {
		It("creates the watch and the first snapshot", func() {
			res, err := registry.Register(ctx, "pay-1", asha)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Created).To(BeTrue())
			Expect(res.Issue.Key).To(Equal("PAY-1"))

			Expect(stores.watches["PAY-1"]).To(HaveKey("U1"))
			Expect(stores.snapshots).To(HaveKey("PAY-1"))
			Expect(stores.snapshots["PAY-1"].Status).To(Equal("Open"))
		})

		It("is idempotent for the same observer", func() {
			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())

			res, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Created).To(BeFalse())

			observers, err := registry.ListObservers(ctx, "PAY-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(observers).To(HaveLen(1))
		})

		It("keeps the existing snapshot when a second observer joins", func() {
			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())

			tracker.fetchIssueFn = func(_ context.Context, key string) (*model.Issue, error) {
				return &model.Issue{Key: key, Status: "In Review", Summary: "moved on"}, nil
			}
			_, err = registry.Register(ctx, "PAY-1", bilal)
			Expect(err).NotTo(HaveOccurred())

			Expect(stores.snapshots["PAY-1"].Status).To(Equal("Open"))
		})

		It("keeps an orphan snapshot that a concurrent cleanup would remove", func() {
			stores.snapshots["PAY-1"] = model.Snapshot{TicketKey: "PAY-1", Status: "Open"}
			maintenance := service.NewMaintenanceService(tx, stores.Reminders(), nil)

			done := make(chan service.MaintenanceResult, 1)
			var once sync.Once
			stores.afterGet = func(string) {
				once.Do(func() {
					go func() {
						res, _ := maintenance.Run(context.Background())
						done <- res
					}()
					// Without the hold, cleanup would delete the snapshot here.
					time.Sleep(20 * time.Millisecond)
				})
			}

			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())

			var res service.MaintenanceResult
			Eventually(done).Should(Receive(&res))
			Expect(res.OrphanSnapshots).To(BeZero())
			Expect(stores.snapshots).To(HaveKey("PAY-1"))
			Expect(stores.locks).To(Equal([]string{"hold", "cleanup"}))
		})

		It("writes nothing when the live fetch fails", func() {
			tracker.fetchIssueFn = func(context.Context, string) (*model.Issue, error) {
				return nil, issue_tracker.ErrIssueNotFound
			}

			_, err := registry.Register(ctx, "PAY-404", asha)
			Expect(err).To(MatchError(issue_tracker.ErrIssueNotFound))
			Expect(tx.calls).To(BeZero())
			Expect(stores.watches).To(BeEmpty())
			Expect(stores.snapshots).To(BeEmpty())
		})

		It("bounds the live fetch", func() {
			tracker.fetchIssueFn = func(ctx context.Context, key string) (*model.Issue, error) {
				deadline, ok := ctx.Deadline()
				Expect(ok).To(BeTrue())
				Expect(time.Until(deadline)).To(BeNumerically("<=", 10*time.Second))
				return &model.Issue{Key: key, Status: "Open"}, nil
			}
			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects malformed keys before fetching", func() {
			fetched := false
			tracker.fetchIssueFn = func(context.Context, string) (*model.Issue, error) {
				fetched = true
				return nil, nil
			}
			_, err := registry.Register(ctx, "nonsense", asha)
			Expect(err).To(MatchError(service.ErrInvalidTicketKey))
			Expect(fetched).To(BeFalse())
		})

		It("surfaces storage failures", func() {
			stores.insertErr = errors.New("db down")
			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).To(MatchError(ContainSubstring("db down")))
		})
	})

	Describe("Unregister", func() {
		It("reports false when not watching", func() {
			removed, err := registry.Unregister(ctx, "PAY-1", "U1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
			Expect(stores.orphanCalls).To(BeZero())
		})

		It("drops the snapshot with the sole observer", func() {
			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())

			removed, err := registry.Unregister(ctx, "pay-1", "U1")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())
			Expect(stores.snapshots).To(BeEmpty())
		})

		It("keeps the snapshot while others still watch", func() {
			_, err := registry.Register(ctx, "PAY-1", asha)
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Register(ctx, "PAY-1", bilal)
			Expect(err).NotTo(HaveOccurred())

			_, err = registry.Unregister(ctx, "PAY-1", "U1")
			Expect(err).NotTo(HaveOccurred())
			Expect(stores.snapshots).To(HaveKey("PAY-1"))
		})
	})

	Describe("RemoveAll", func() {
		It("removes every watch and the snapshot", func() {
			_, _ = registry.Register(ctx, "PAY-1", asha)
			_, _ = registry.Register(ctx, "PAY-1", bilal)
			_, _ = registry.Register(ctx, "PAY-2", asha)

			n, err := registry.RemoveAll(ctx, "PAY-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(2))

			keys, err := registry.ListAllWatchedEntities(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(Equal([]string{"PAY-2"}))
			Expect(stores.snapshots).NotTo(HaveKey("PAY-1"))
		})
	})

	Describe("Stats", func() {
		It("combines watch, snapshot and reminder counts", func() {
			_, _ = registry.Register(ctx, "PAY-1", asha)
			_, _ = registry.Register(ctx, "PAY-1", bilal)
			_, _ = registry.Register(ctx, "PAY-2", asha)
			stores.reminders[1] = model.Reminder{ID: 1, ObserverID: "U1"}

			stats, err := registry.Stats(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(stats).To(Equal(model.WatchStats{
				TotalWatches:     3,
				UniqueObservers:  2,
				WatchedTickets:   2,
				Snapshots:        2,
				PendingReminders: 1,
			}))
		})
	})

	It("lists an observer's tickets", func() {
		_, _ = registry.Register(ctx, "PAY-2", asha)
		_, _ = registry.Register(ctx, "PAY-1", asha)
		_, _ = registry.Register(ctx, "PAY-3", bilal)

		watches, err := registry.ListEntities(ctx, "U1")
		Expect(err).NotTo(HaveOccurred())
		Expect(watches).To(HaveLen(2))
		Expect(watches[0].TicketKey).To(Equal("PAY-1"))
		Expect(watches[1].TicketKey).To(Equal("PAY-2"))
	})
})
