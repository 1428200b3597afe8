package model

import "time"

type Watch struct {
	TicketKey    string    `json:"ticket_key"`
	ObserverID   string    `json:"observer_id"`
	ObserverName string    `json:"observer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type WatchStats struct {
	TotalWatches     int64 `json:"total_watches"`
	UniqueObservers  int64 `json:"unique_observers"`
	WatchedTickets   int64 `json:"watched_tickets"`
	Snapshots        int64 `json:"snapshots"`
	PendingReminders int64 `json:"pending_reminders"`
}
