package logger

import (
	"context"
	"log/slog"
	"os"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"
)

// Setup installs the default slog logger. Extra handlers receive every record
// the primary handler accepts (used to mirror run logs to the chat logs channel).
func Setup(cfg config.Config, tees ...slog.Handler) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
	}

	if cfg.IsProduction() && cfg.OTel.Enabled() {
		handler = otelslog.NewHandler(
			cfg.OTel.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
	} else if cfg.IsProduction() {
		handler = NewTraceHandler(slog.NewJSONHandler(os.Stdout, opts))
	} else {
		handler = NewTraceHandler(slog.NewTextHandler(os.Stdout, opts))
	}

	if len(tees) > 0 {
		handler = &teeHandler{primary: handler, tees: tees}
	}

	slog.SetDefault(slog.New(handler))
}

type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	// Add OTel trace/span IDs from context
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	// Add structured fields from context (automatic enrichment)
	addContextAttrs(ctx, &r)

	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

func addContextAttrs(ctx context.Context, r *slog.Record) {
	fields := GetLogFields(ctx)
	if fields.TicketKey != nil {
		r.AddAttrs(slog.String("ticket_key", *fields.TicketKey))
	}
	if fields.ObserverID != nil {
		r.AddAttrs(slog.String("observer_id", *fields.ObserverID))
	}
	if fields.MessageID != nil {
		r.AddAttrs(slog.String("message_id", *fields.MessageID))
	}
	if fields.ReminderID != nil {
		r.AddAttrs(slog.Int64("reminder_id", *fields.ReminderID))
	}
	if fields.Trigger != nil {
		r.AddAttrs(slog.String("trigger", *fields.Trigger))
	}
	if fields.Component != "" {
		r.AddAttrs(slog.String("component", fields.Component))
	}
}

type teeHandler struct {
	primary slog.Handler
	tees    []slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.primary.Enabled(ctx, level) {
		return true
	}
	for _, t := range h.tees {
		if t.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, t := range h.tees {
		if t.Enabled(ctx, r.Level) {
			_ = t.Handle(ctx, r.Clone())
		}
	}
	if !h.primary.Enabled(ctx, r.Level) {
		return nil
	}
	return h.primary.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	tees := make([]slog.Handler, len(h.tees))
	for i, t := range h.tees {
		tees[i] = t.WithAttrs(attrs)
	}
	return &teeHandler{primary: h.primary.WithAttrs(attrs), tees: tees}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	tees := make([]slog.Handler, len(h.tees))
	for i, t := range h.tees {
		tees[i] = t.WithGroup(name)
	}
	return &teeHandler{primary: h.primary.WithGroup(name), tees: tees}
}
