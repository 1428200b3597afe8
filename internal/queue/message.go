// Package queue carries outbound notifications over a Redis stream so a
// failed chat delivery can be retried or dead-lettered.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

// Message is a notification read back from the stream.
type Message struct {
	ID           string
	Notification notify.Notification
	Attempt      int
	TraceID      string
	LastError    string
	Raw          redis.XMessage
}

// EnqueuedAt is when the entry was added to the stream, read from its ID.
// A requeued entry reports the time of the requeue.
func (m Message) EnqueuedAt() (time.Time, bool) {
	ms, _, found := strings.Cut(m.ID, "-")
	if !found {
		return time.Time{}, false
	}
	n, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(n), true
}

// MessageProcessor processes a queue message.
type MessageProcessor func(ctx context.Context, msg Message) error

// Encode renders a notification as stream entry values.
func Encode(n notify.Notification, attempt int, traceID string) (map[string]any, error) {
	if attempt <= 0 {
		attempt = 1
	}
	body, err := json.Marshal(n)
	if err != nil {
		return nil, fmt.Errorf("encoding notification: %w", err)
	}

	values := map[string]any{
		"notification_id": n.ID,
		"kind":            string(n.Kind),
		"payload":         string(body),
		"attempt":         attempt,
	}
	if traceID != "" {
		values["trace_id"] = traceID
	}
	return values, nil
}

func ParseMessage(msg redis.XMessage) (Message, error) {
	raw, err := parseString(msg.Values, "payload")
	if err != nil {
		return Message{}, err
	}

	var n notify.Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		return Message{}, fmt.Errorf("decoding payload: %w", err)
	}
	if err := n.Validate(); err != nil {
		return Message{}, err
	}

	attempt, err := parseOptionalInt(msg.Values, "attempt")
	if err != nil {
		return Message{}, err
	}
	if attempt == 0 {
		attempt = 1
	}

	return Message{
		ID:           msg.ID,
		Notification: n,
		Attempt:      attempt,
		TraceID:      parseOptionalString(msg.Values, "trace_id"),
		LastError:    parseOptionalString(msg.Values, "last_error"),
		Raw:          msg,
	}, nil
}

func messageValues(msg Message, attempt int) (map[string]any, error) {
	return Encode(msg.Notification, attempt, msg.TraceID)
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalInt(values map[string]any, key string) (int, error) {
	raw, ok := values[key]
	if !ok {
		return 0, nil
	}
	num, err := strconv.Atoi(fmt.Sprint(raw))
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return num, nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
