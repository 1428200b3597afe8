package queue_test

import (
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/queue"
)

var _ = Describe("Message encoding", func() {
	watchChange := notify.Notification{
		ID:         42,
		Kind:       notify.KindWatchChange,
		ObserverID: "U123",
		TicketKey:  "PAY-7",
		Payload: notify.Payload{
			Title:  "PAY-7: Fix refunds",
			Lines:  []string{"Status: Open → In Progress"},
			Footer: "Current status: In Progress",
		},
	}

	// Redis hands stream values back as strings.
	asStream := func(values map[string]any) redis.XMessage {
		out := map[string]any{}
		for k, v := range values {
			out[k] = fmt.Sprint(v)
		}
		return redis.XMessage{ID: "1-0", Values: out}
	}

	It("reads back what it writes", func() {
		values, err := queue.Encode(watchChange, 2, "abc123")
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(HaveKeyWithValue("kind", "watch_change"))

		msg, err := queue.ParseMessage(asStream(values))
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.ID).To(Equal("1-0"))
		Expect(msg.Notification).To(Equal(watchChange))
		Expect(msg.Attempt).To(Equal(2))
		Expect(msg.TraceID).To(Equal("abc123"))
	})

	It("starts attempts at one", func() {
		values, err := queue.Encode(watchChange, 0, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(values).To(HaveKeyWithValue("attempt", 1))
		Expect(values).NotTo(HaveKey("trace_id"))
	})

	It("carries the last error of a requeued entry", func() {
		values, err := queue.Encode(watchChange, 2, "")
		Expect(err).NotTo(HaveOccurred())
		values["last_error"] = "slack: ratelimited"

		msg, err := queue.ParseMessage(asStream(values))
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.LastError).To(Equal("slack: ratelimited"))
	})

	It("reads the enqueue time from the entry id", func() {
		at, ok := queue.Message{ID: "1700000000123-4"}.EnqueuedAt()
		Expect(ok).To(BeTrue())
		Expect(at).To(Equal(time.UnixMilli(1700000000123)))

		_, ok = queue.Message{ID: "not-an-id"}.EnqueuedAt()
		Expect(ok).To(BeFalse())
		_, ok = queue.Message{}.EnqueuedAt()
		Expect(ok).To(BeFalse())
	})

	DescribeTable("rejects malformed entries",
		func(values map[string]any) {
			_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
			Expect(err).To(HaveOccurred())
		},
		Entry("missing payload", map[string]any{"attempt": "1"}),
		Entry("payload is not json", map[string]any{"payload": "{"}),
		Entry("invalid notification", map[string]any{"payload": `{"kind":"nope","channel_id":"C1"}`}),
		Entry("no recipient", map[string]any{"payload": `{"kind":"reminder"}`}),
		Entry("bad attempt", map[string]any{"payload": `{"kind":"reminder","channel_id":"C1"}`, "attempt": "x"}),
	)
})
