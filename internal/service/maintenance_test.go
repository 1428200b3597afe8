package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
)

var _ = Describe("MaintenanceService", func() {
	It("drops orphan snapshots and old sent reminders", func() {
		now := time.Date(2026, time.October, 14, 3, 0, 0, 0, time.UTC)
		stores := newMemStores()
		stores.watches["PAY-1"] = map[string]model.Watch{"U1": {TicketKey: "PAY-1", ObserverID: "U1"}}
		stores.snapshots["PAY-1"] = model.Snapshot{TicketKey: "PAY-1"}
		stores.snapshots["PAY-2"] = model.Snapshot{TicketKey: "PAY-2"}
		stores.reminders[1] = model.Reminder{ID: 1, Sent: true, FireAt: now.Add(-8 * 24 * time.Hour)}
		stores.reminders[2] = model.Reminder{ID: 2, Sent: true, FireAt: now.Add(-24 * time.Hour)}
		stores.reminders[3] = model.Reminder{ID: 3, FireAt: now.Add(-30 * 24 * time.Hour)}

		svc := service.NewMaintenanceService(&memTxRunner{stores: stores}, stores.Reminders(), func() time.Time { return now })
		res, err := svc.Run(context.Background())

		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(Equal(service.MaintenanceResult{OrphanSnapshots: 1, SentReminders: 1}))
		Expect(stores.snapshots).To(HaveKey("PAY-1"))
		Expect(stores.reminders).To(HaveKey(int64(2)))
		Expect(stores.reminders).To(HaveKey(int64(3)))
	})
})
