package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/handler"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
)

// Services is the part of service.Services the API serves.
type Services interface {
	Watches() service.WatchRegistry
	Reminders() service.ReminderService
}

func SetupRoutes(router *gin.Engine, services Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		watchHandler := handler.NewWatchHandler(services.Watches())
		WatchRouter(v1.Group("/watches"), watchHandler)
		v1.GET("/stats", watchHandler.Stats)

		reminderHandler := handler.NewReminderHandler(services.Reminders())
		ReminderRouter(v1.Group("/reminders"), reminderHandler)
	}
}
