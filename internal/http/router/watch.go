package router

import (
	"github.com/gin-gonic/gin"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/handler"
)

func WatchRouter(rg *gin.RouterGroup, h *handler.WatchHandler) {
	rg.POST("", h.Watch)
	rg.GET("", h.List)
	rg.DELETE("/:key", h.Unwatch)
	rg.GET("/:key/observers", h.Observers)
}

func ReminderRouter(rg *gin.RouterGroup, h *handler.ReminderHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.DELETE("/:id", h.Delete)
}
