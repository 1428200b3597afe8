package model

import "time"

// Snapshot is the last-known state of a watched ticket's tracked fields.
// LastModified is opaque and only compared for equality.
type Snapshot struct {
	TicketKey    string    `json:"ticket_key"`
	Status       string    `json:"status"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Assignee     *string   `json:"assignee,omitempty"`
	LastModified string    `json:"last_modified"`
	UpdatedAt    time.Time `json:"updated_at"`
}
