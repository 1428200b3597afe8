package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/handler"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
)

var _ = Describe("WatchHandler", func() {
	var (
		router   *gin.Engine
		registry *mockWatchRegistry
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		registry = &mockWatchRegistry{}
		h := handler.NewWatchHandler(registry)

		watches := router.Group("/watches")
		watches.POST("", h.Watch)
		watches.GET("", h.List)
		watches.DELETE("/:key", h.Unwatch)
		watches.GET("/:key/observers", h.Observers)
		router.GET("/stats", h.Stats)
	})

	serve := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("Watch", func() {
		It("returns 201 with the ticket's current state for a new watch", func() {
			registry.registerFn = func(_ context.Context, key string, observer model.Observer) (service.RegisterResult, error) {
				Expect(key).To(Equal("pay-12"))
				Expect(observer).To(Equal(model.Observer{ID: "U1", Name: "Asha"}))
				return service.RegisterResult{
					Created: true,
					Issue:   model.Issue{Key: "PAY-12", Type: "Bug", Status: "Open", Summary: "Refunds fail"},
				}, nil
			}

			w := serve(http.MethodPost, "/watches", map[string]string{
				"ticket_key":    "pay-12",
				"observer_id":   "U1",
				"observer_name": "Asha",
			})

			Expect(w.Code).To(Equal(http.StatusCreated))
			var resp map[string]any
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp["ticket_key"]).To(Equal("PAY-12"))
			Expect(resp["created"]).To(BeTrue())
			Expect(resp["status"]).To(Equal("Open"))
		})

		It("returns 200 when the observer already watches the ticket", func() {
			registry.registerFn = func(context.Context, string, model.Observer) (service.RegisterResult, error) {
				return service.RegisterResult{Issue: model.Issue{Key: "PAY-12"}}, nil
			}

			w := serve(http.MethodPost, "/watches", map[string]string{"ticket_key": "PAY-12", "observer_id": "U1"})

			Expect(w.Code).To(Equal(http.StatusOK))
		})

		DescribeTable("maps registry errors",
			func(err error, status int) {
				registry.registerFn = func(context.Context, string, model.Observer) (service.RegisterResult, error) {
					return service.RegisterResult{}, err
				}

				w := serve(http.MethodPost, "/watches", map[string]string{"ticket_key": "PAY-12", "observer_id": "U1"})

				Expect(w.Code).To(Equal(status))
			},
			Entry("malformed key", fmt.Errorf("%w: %q", service.ErrInvalidTicketKey, "PAY"), http.StatusBadRequest),
			Entry("unknown ticket", fmt.Errorf("fetching: %w", issue_tracker.ErrIssueNotFound), http.StatusNotFound),
			Entry("tracker down", errors.New("connection refused"), http.StatusBadGateway),
		)

		It("returns 400 without an observer", func() {
			w := serve(http.MethodPost, "/watches", map[string]string{"ticket_key": "PAY-12"})

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("Unwatch", func() {
		It("removes the watch for the normalized key", func() {
			registry.unregisterFn = func(_ context.Context, key, observerID string) (bool, error) {
				Expect(key).To(Equal("PAY-12"))
				Expect(observerID).To(Equal("U1"))
				return true, nil
			}

			w := serve(http.MethodDelete, "/watches/pay-12?observer_id=U1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"removed":true`))
		})

		It("returns 404 when the observer was not watching", func() {
			w := serve(http.MethodDelete, "/watches/PAY-12?observer_id=U1", nil)

			Expect(w.Code).To(Equal(http.StatusNotFound))
		})

		It("returns 400 for a malformed key", func() {
			w := serve(http.MethodDelete, "/watches/PAY?observer_id=U1", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 400 without an observer", func() {
			w := serve(http.MethodDelete, "/watches/PAY-12", nil)

			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("List and Observers", func() {
		It("lists an observer's watches", func() {
			created := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
			registry.listEntitiesFn = func(_ context.Context, observerID string) ([]model.Watch, error) {
				return []model.Watch{{TicketKey: "PAY-1", ObserverID: observerID, CreatedAt: created}}, nil
			}

			w := serve(http.MethodGet, "/watches?observer_id=U1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			var resp struct {
				Watches []map[string]any `json:"watches"`
			}
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Watches).To(HaveLen(1))
			Expect(resp.Watches[0]["ticket_key"]).To(Equal("PAY-1"))
		})

		It("returns an empty list rather than null", func() {
			w := serve(http.MethodGet, "/watches?observer_id=U1", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{"watches":[]}`))
		})

		It("lists a ticket's observers", func() {
			registry.listObserversFn = func(_ context.Context, key string) ([]model.Watch, error) {
				return []model.Watch{{TicketKey: key, ObserverID: "U1"}, {TicketKey: key, ObserverID: "U2"}}, nil
			}

			w := serve(http.MethodGet, "/watches/pay-1/observers", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring(`"observer_id":"U2"`))
			Expect(w.Body.String()).To(ContainSubstring(`"ticket_key":"PAY-1"`))
		})
	})

	Describe("Stats", func() {
		It("returns the counters", func() {
			registry.statsFn = func(context.Context) (model.WatchStats, error) {
				return model.WatchStats{TotalWatches: 3, UniqueObservers: 2, WatchedTickets: 2, Snapshots: 2, PendingReminders: 1}, nil
			}

			w := serve(http.MethodGet, "/stats", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(MatchJSON(`{
				"total_watches": 3,
				"unique_observers": 2,
				"watched_tickets": 2,
				"snapshots": 2,
				"pending_reminders": 1
			}`))
		})

		It("returns 500 when the store fails", func() {
			registry.statsFn = func(context.Context) (model.WatchStats, error) {
				return model.WatchStats{}, errors.New("db down")
			}

			Expect(serve(http.MethodGet, "/stats", nil).Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
