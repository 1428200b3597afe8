package model

// Observer is a chat user that can watch tickets and own reminders.
type Observer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
