package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/middleware"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/router"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
)

type stubRegistry struct {
	service.WatchRegistry
	stats func() model.WatchStats
}

func (s stubRegistry) Stats(context.Context) (model.WatchStats, error) {
	return s.stats(), nil
}

type stubServices struct {
	registry service.WatchRegistry
}

func (s stubServices) Watches() service.WatchRegistry     { return s.registry }
func (s stubServices) Reminders() service.ReminderService { return nil }

var _ = Describe("SetupRoutes", func() {
	var engine *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		engine = gin.New()
		engine.Use(middleware.Recovery(), middleware.Logger())
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	It("serves health", func() {
		router.SetupRoutes(engine, stubServices{})

		w := get("/health")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"status":"ok"}`))
	})

	It("mounts the api under /api/v1", func() {
		router.SetupRoutes(engine, stubServices{registry: stubRegistry{
			stats: func() model.WatchStats { return model.WatchStats{TotalWatches: 4} },
		}})

		w := get("/api/v1/stats")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"total_watches":4`))
	})

	It("turns a handler panic into a 500", func() {
		router.SetupRoutes(engine, stubServices{registry: stubRegistry{
			stats: func() model.WatchStats { panic("boom") },
		}})

		w := get("/api/v1/stats")
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(MatchJSON(`{"error":"internal server error"}`))
	})
})
