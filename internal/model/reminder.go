package model

import "time"

type Reminder struct {
	ID           int64     `json:"id"`
	ObserverID   string    `json:"observer_id"`
	ObserverName string    `json:"observer_name"`
	Message      string    `json:"message"`
	FireAt       time.Time `json:"fire_at"`
	ChannelID    string    `json:"channel_id"`
	Sent         bool      `json:"sent"`
	CreatedAt    time.Time `json:"created_at"`
}
