package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/dto"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
)

type WatchHandler struct {
	registry service.WatchRegistry
}

func NewWatchHandler(registry service.WatchRegistry) *WatchHandler {
	return &WatchHandler{registry: registry}
}

// Watch registers an observer on a ticket. Watching a ticket twice is not an
// error; the response reports created=false.
func (h *WatchHandler) Watch(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: ticket_key and observer_id are required"})
		return
	}

	res, err := h.registry.Register(ctx, req.TicketKey, model.Observer{ID: req.ObserverID, Name: req.ObserverName})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTicketKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, issue_tracker.ErrIssueNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found"})
		default:
			slog.ErrorContext(ctx, "failed to register watch", "error", err, "ticket_key", req.TicketKey)
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not reach the issue tracker"})
		}
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.ToWatchResponse(req.ObserverID, res))
}

func (h *WatchHandler) Unwatch(c *gin.Context) {
	ctx := c.Request.Context()

	observerID := c.Query("observer_id")
	if observerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "observer_id is required"})
		return
	}

	key, err := service.NormalizeTicketKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := h.registry.Unregister(ctx, key, observerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to remove watch", "error", err, "ticket_key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove watch"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, dto.UnwatchResponse{TicketKey: key})
		return
	}
	c.JSON(http.StatusOK, dto.UnwatchResponse{TicketKey: key, Removed: true})
}

// List returns the tickets one observer watches.
func (h *WatchHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	observerID := c.Query("observer_id")
	if observerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "observer_id is required"})
		return
	}

	watches, err := h.registry.ListEntities(ctx, observerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list watches", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list watches"})
		return
	}
	c.JSON(http.StatusOK, dto.ToWatchListResponse(watches))
}

func (h *WatchHandler) Observers(c *gin.Context) {
	ctx := c.Request.Context()

	key, err := service.NormalizeTicketKey(c.Param("key"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	watches, err := h.registry.ListObservers(ctx, key)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list observers", "error", err, "ticket_key", key)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list observers"})
		return
	}
	c.JSON(http.StatusOK, dto.ToWatchListResponse(watches))
}

func (h *WatchHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.registry.Stats(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to compute stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
