package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so a ticket key set once at the top of a
// poll or automation run shows up on every log line below it.
type LogFields struct {
	TicketKey  *string // Issue-tracker key (e.g., "ABC-123")
	ObserverID *string // Chat user that owns a watch or reminder
	MessageID  *string // Redis stream message ID
	ReminderID *int64  // Scheduled reminder ID
	Trigger    *string // Scheduler trigger that launched the unit (e.g., "interval", "explicit:1000")
	Component  string  // Component name (OTel semantic convention style, e.g., "updater.scheduler")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.TicketKey != nil {
		result.TicketKey = new.TicketKey
	}
	if new.ObserverID != nil {
		result.ObserverID = new.ObserverID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.ReminderID != nil {
		result.ReminderID = new.ReminderID
	}
	if new.Trigger != nil {
		result.Trigger = new.Trigger
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{TicketKey: logger.Ptr(key)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
