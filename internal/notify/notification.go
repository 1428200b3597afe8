// Package notify turns engine events into chat messages and delivers them.
package notify

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindWatchChange   Kind = "watch_change"
	KindStatusSummary Kind = "status_summary"
	KindDueAlert      Kind = "due_alert"
	KindReminder      Kind = "reminder"
	KindLogDigest     Kind = "log_digest"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindWatchChange, KindStatusSummary, KindDueAlert, KindReminder, KindLogDigest:
		return true
	}
	return false
}

// MaxAge is how long a notification of this kind stays worth sending. Zero
// means it never goes stale.
func (k Kind) MaxAge() time.Duration {
	switch k {
	case KindLogDigest:
		return time.Hour
	case KindStatusSummary:
		return 6 * time.Hour
	case KindDueAlert:
		return 12 * time.Hour
	case KindWatchChange:
		return 24 * time.Hour
	default:
		return 0
	}
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Payload is a provider-neutral message. A payload with only Text is sent as
// plain text.
type Payload struct {
	Title  string   `json:"title,omitempty"`
	URL    string   `json:"url,omitempty"`
	Text   string   `json:"text,omitempty"`
	Lines  []string `json:"lines,omitempty"`
	Fields []Field  `json:"fields,omitempty"`
	Footer string   `json:"footer,omitempty"`
}

func (p Payload) IsPlain() bool {
	return p.Title == "" && p.URL == "" && len(p.Lines) == 0 && len(p.Fields) == 0 && p.Footer == ""
}

// PlainText renders the payload as a single text message.
func (p Payload) PlainText() string {
	var sb strings.Builder
	if p.Title != "" {
		sb.WriteString(p.Title)
		sb.WriteString("\n")
	}
	if p.URL != "" {
		sb.WriteString(p.URL)
		sb.WriteString("\n")
	}
	if p.Text != "" {
		sb.WriteString(p.Text)
		sb.WriteString("\n")
	}
	for _, line := range p.Lines {
		sb.WriteString("• ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	for _, f := range p.Fields {
		fmt.Fprintf(&sb, "%s: %s\n", f.Name, f.Value)
	}
	if p.Footer != "" {
		sb.WriteString(p.Footer)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Notification is one message bound for one observer or one channel.
// Exactly one of ObserverID and ChannelID is set.
type Notification struct {
	ID         int64   `json:"id"`
	Kind       Kind    `json:"kind"`
	ObserverID string  `json:"observer_id,omitempty"`
	ChannelID  string  `json:"channel_id,omitempty"`
	TicketKey  string  `json:"ticket_key,omitempty"`
	Payload    Payload `json:"payload"`
}

func (n Notification) Direct() bool {
	return n.ObserverID != ""
}

func (n Notification) Validate() error {
	if !n.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNotification, n.Kind)
	}
	if (n.ObserverID == "") == (n.ChannelID == "") {
		return fmt.Errorf("%w: needs exactly one of observer_id and channel_id", ErrInvalidNotification)
	}
	return nil
}
