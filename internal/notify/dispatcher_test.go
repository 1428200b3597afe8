package notify_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

type delivery struct {
	direct  bool
	target  string
	payload notify.Payload
}

type fakeSink struct {
	deliveries []delivery
	respond    func(call int, d delivery) error
}

func (f *fakeSink) record(d delivery) error {
	f.deliveries = append(f.deliveries, d)
	if f.respond != nil {
		return f.respond(len(f.deliveries), d)
	}
	return nil
}

func (f *fakeSink) DeliverDirect(_ context.Context, observerID string, p notify.Payload) error {
	return f.record(delivery{direct: true, target: observerID, payload: p})
}

func (f *fakeSink) DeliverToChannel(_ context.Context, channelID string, p notify.Payload) error {
	return f.record(delivery{target: channelID, payload: p})
}

var _ = Describe("Dispatcher", func() {
	var (
		ctx  context.Context
		sink *fakeSink
		d    *notify.Dispatcher
	)

	BeforeEach(func() {
		ctx = context.Background()
		sink = &fakeSink{}
		d = notify.NewDispatcher(sink)
	})

	watchChange := notify.Notification{
		Kind:       notify.KindWatchChange,
		ObserverID: "U123",
		TicketKey:  "PAY-1",
		Payload: notify.Payload{
			Title: "PAY-1 changed",
			URL:   "https://jira.example.com/browse/PAY-1",
			Lines: []string{"Status: Open → In Progress"},
		},
	}

	It("delivers direct notifications to the observer", func() {
		Expect(d.Dispatch(ctx, watchChange)).To(Succeed())
		Expect(sink.deliveries).To(HaveLen(1))
		Expect(sink.deliveries[0].direct).To(BeTrue())
		Expect(sink.deliveries[0].target).To(Equal("U123"))
	})

	It("delivers immediately when used as a publisher", func() {
		Expect(d.Enqueue(ctx, watchChange)).To(Succeed())
		Expect(sink.deliveries).To(HaveLen(1))
	})

	It("delivers channel notifications to the channel", func() {
		n := notify.Notification{Kind: notify.KindStatusSummary, ChannelID: "C42", Payload: notify.Payload{Text: "done"}}
		Expect(d.Dispatch(ctx, n)).To(Succeed())
		Expect(sink.deliveries).To(HaveLen(1))
		Expect(sink.deliveries[0].direct).To(BeFalse())
		Expect(sink.deliveries[0].target).To(Equal("C42"))
	})

	It("rejects a notification without a single target", func() {
		n := notify.Notification{Kind: notify.KindReminder, ObserverID: "U1", ChannelID: "C1"}
		err := d.Dispatch(ctx, n)
		Expect(err).To(MatchError(notify.ErrInvalidNotification))
		Expect(notify.IsPermanent(err)).To(BeTrue())
		Expect(sink.deliveries).To(BeEmpty())
	})

	It("retries a too-large payload truncated", func() {
		sink.respond = func(call int, _ delivery) error {
			if call == 1 {
				return fmt.Errorf("msg_too_long: %w", notify.ErrPayloadTooLarge)
			}
			return nil
		}
		n := watchChange
		n.Payload.Text = strings.Repeat("x", 5000)

		Expect(d.Dispatch(ctx, n)).To(Succeed())
		Expect(sink.deliveries).To(HaveLen(2))
		Expect(sink.deliveries[1].payload.Text).To(HaveSuffix("... [TRUNCATED DUE TO LENGTH]"))
	})

	It("falls back to plain-text chunks when truncation is not enough", func() {
		sink.respond = func(_ int, del delivery) error {
			if !del.payload.IsPlain() {
				return notify.ErrPayloadTooLarge
			}
			return nil
		}

		Expect(d.Dispatch(ctx, watchChange)).To(Succeed())
		Expect(sink.deliveries).To(HaveLen(3))
		plain := sink.deliveries[2].payload
		Expect(plain.IsPlain()).To(BeTrue())
		Expect(plain.Text).To(ContainSubstring("• Status: Open → In Progress"))
	})

	DescribeTable("acknowledges errors that a retry cannot fix",
		func(err error) {
			sink.respond = func(int, delivery) error { return err }
			Expect(d.Dispatch(ctx, watchChange)).To(Succeed())
		},
		Entry("unreachable observer", fmt.Errorf("cannot_dm_bot: %w", notify.ErrObserverUnreachable)),
		Entry("forbidden channel", fmt.Errorf("not_in_channel: %w", notify.ErrForbidden)),
	)

	It("returns transient errors so the message is retried", func() {
		boom := errors.New("connection reset")
		sink.respond = func(int, delivery) error { return boom }

		err := d.Dispatch(ctx, watchChange)
		Expect(err).To(MatchError(boom))
		Expect(notify.IsPermanent(err)).To(BeFalse())
	})
})

var _ = Describe("Delivery policy", func() {
	DescribeTable("classifies errors a retry cannot fix as permanent",
		func(err error, permanent bool) {
			Expect(notify.IsPermanent(err)).To(Equal(permanent))
		},
		Entry("unreachable observer", fmt.Errorf("cannot_dm_bot: %w", notify.ErrObserverUnreachable), true),
		Entry("forbidden channel", fmt.Errorf("not_in_channel: %w", notify.ErrForbidden), true),
		Entry("payload too large", notify.ErrPayloadTooLarge, true),
		Entry("invalid notification", notify.ErrInvalidNotification, true),
		Entry("rate limited", errors.New("ratelimited"), false),
		Entry("nil", nil, false),
	)

	DescribeTable("expires notifications by kind",
		func(kind notify.Kind, maxAge time.Duration) {
			Expect(kind.MaxAge()).To(Equal(maxAge))
		},
		Entry("log digest", notify.KindLogDigest, time.Hour),
		Entry("status summary", notify.KindStatusSummary, 6*time.Hour),
		Entry("due alert", notify.KindDueAlert, 12*time.Hour),
		Entry("watch change", notify.KindWatchChange, 24*time.Hour),
		Entry("reminder never expires", notify.KindReminder, time.Duration(0)),
	)
})
