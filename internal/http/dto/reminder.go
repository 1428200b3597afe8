package dto

import (
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
)

type CreateReminderRequest struct {
	ObserverID   string `json:"observer_id" binding:"required"`
	ObserverName string `json:"observer_name"`
	ChannelID    string `json:"channel_id"`
	Message      string `json:"message" binding:"required"`
	// Date is "today", "tomorrow", dd/mm/yyyy, dd/mm/yy or a natural
	// language date. Time is HH:MM and optional.
	Date string `json:"date" binding:"required"`
	Time string `json:"time"`
}

type ReminderResponse struct {
	ID         int64     `json:"id,string"`
	ObserverID string    `json:"observer_id"`
	Message    string    `json:"message"`
	FireAt     time.Time `json:"fire_at"`
	ChannelID  string    `json:"channel_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToReminderResponse(r *model.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:         r.ID,
		ObserverID: r.ObserverID,
		Message:    r.Message,
		FireAt:     r.FireAt,
		ChannelID:  r.ChannelID,
		CreatedAt:  r.CreatedAt,
	}
}

type ReminderListResponse struct {
	Reminders []ReminderResponse `json:"reminders"`
}

func ToReminderListResponse(reminders []model.Reminder) ReminderListResponse {
	resp := ReminderListResponse{Reminders: make([]ReminderResponse, len(reminders))}
	for i := range reminders {
		resp.Reminders[i] = ToReminderResponse(&reminders[i])
	}
	return resp
}
