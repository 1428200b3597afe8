package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/http/dto"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
)

type ReminderHandler struct {
	reminders service.ReminderService
}

func NewReminderHandler(reminders service.ReminderService) *ReminderHandler {
	return &ReminderHandler{reminders: reminders}
}

func (h *ReminderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: observer_id, message and date are required"})
		return
	}

	r, err := h.reminders.Create(ctx, service.CreateReminderInput{
		Observer:  model.Observer{ID: req.ObserverID, Name: req.ObserverName},
		ChannelID: req.ChannelID,
		Message:   req.Message,
		Date:      req.Date,
		Time:      req.Time,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidReminderDate) ||
			errors.Is(err, service.ErrReminderInPast) ||
			errors.Is(err, service.ErrEmptyReminder) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to create reminder", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reminder"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToReminderResponse(r))
}

func (h *ReminderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	observerID := c.Query("observer_id")
	if observerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "observer_id is required"})
		return
	}

	reminders, err := h.reminders.ListPending(ctx, observerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list reminders", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reminders"})
		return
	}
	c.JSON(http.StatusOK, dto.ToReminderListResponse(reminders))
}

// Delete removes a pending reminder. Only its owner can delete it; anyone
// else gets the same 404 as for a missing reminder.
func (h *ReminderHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reminder id"})
		return
	}
	observerID := c.Query("observer_id")
	if observerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "observer_id is required"})
		return
	}

	deleted, err := h.reminders.Delete(ctx, id, observerID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to delete reminder", "error", err, "reminder_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete reminder"})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
