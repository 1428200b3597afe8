package dto

import (
	"time"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/model"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
)

type WatchRequest struct {
	TicketKey    string `json:"ticket_key" binding:"required"`
	ObserverID   string `json:"observer_id" binding:"required"`
	ObserverName string `json:"observer_name"`
}

type WatchResponse struct {
	TicketKey  string `json:"ticket_key"`
	ObserverID string `json:"observer_id"`
	Created    bool   `json:"created"`
	Status     string `json:"status"`
	Title      string `json:"title"`
	Type       string `json:"type"`
}

func ToWatchResponse(observerID string, res service.RegisterResult) WatchResponse {
	return WatchResponse{
		TicketKey:  res.Issue.Key,
		ObserverID: observerID,
		Created:    res.Created,
		Status:     res.Issue.Status,
		Title:      res.Issue.Summary,
		Type:       res.Issue.Type,
	}
}

type WatchEntry struct {
	TicketKey    string    `json:"ticket_key"`
	ObserverID   string    `json:"observer_id"`
	ObserverName string    `json:"observer_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type WatchListResponse struct {
	Watches []WatchEntry `json:"watches"`
}

func ToWatchListResponse(watches []model.Watch) WatchListResponse {
	resp := WatchListResponse{Watches: make([]WatchEntry, len(watches))}
	for i, w := range watches {
		resp.Watches[i] = WatchEntry{
			TicketKey:    w.TicketKey,
			ObserverID:   w.ObserverID,
			ObserverName: w.ObserverName,
			CreatedAt:    w.CreatedAt,
		}
	}
	return resp
}

type UnwatchResponse struct {
	TicketKey string `json:"ticket_key"`
	Removed   bool   `json:"removed"`
}
