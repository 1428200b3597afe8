package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const defaultChannelBufferLines = 500

// ChannelBuffer is a slog.Handler that keeps formatted records in memory
// while capturing is on, so a finished run can be posted to a chat channel.
// It never writes anywhere itself; pair it with the primary handler via Setup.
type ChannelBuffer struct {
	state *channelBufferState
	attrs []slog.Attr
	group string
}

type channelBufferState struct {
	mu        sync.Mutex
	level     slog.Level
	maxLines  int
	capturing bool
	lines     []string
	dropped   int
}

func NewChannelBuffer(level slog.Level, maxLines int) *ChannelBuffer {
	if maxLines <= 0 {
		maxLines = defaultChannelBufferLines
	}
	return &ChannelBuffer{state: &channelBufferState{level: level, maxLines: maxLines}}
}

// Start begins capturing. Lines from an earlier capture are discarded.
func (b *ChannelBuffer) Start() {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	b.state.capturing = true
	b.state.lines = nil
	b.state.dropped = 0
}

// Drain stops capturing and returns what was captured.
func (b *ChannelBuffer) Drain() []string {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	b.state.capturing = false
	lines := b.state.lines
	if b.state.dropped > 0 {
		lines = append(lines, fmt.Sprintf("... %d more log lines not shown", b.state.dropped))
	}
	b.state.lines = nil
	b.state.dropped = 0
	return lines
}

func (b *ChannelBuffer) Enabled(_ context.Context, level slog.Level) bool {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	return b.state.capturing && level >= b.state.level
}

func (b *ChannelBuffer) Handle(ctx context.Context, r slog.Record) error {
	addContextAttrs(ctx, &r)

	var sb strings.Builder
	sb.WriteString(r.Time.Format(time.DateTime))
	sb.WriteString(" - ")
	sb.WriteString(r.Level.String())
	sb.WriteString(" - ")
	sb.WriteString(r.Message)

	prefix := ""
	if b.group != "" {
		prefix = b.group + "."
	}
	for _, a := range b.attrs {
		fmt.Fprintf(&sb, " %s%s=%v", prefix, a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, " %s%s=%v", prefix, a.Key, a.Value)
		return true
	})

	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	if !b.state.capturing {
		return nil
	}
	if len(b.state.lines) >= b.state.maxLines {
		b.state.dropped++
		return nil
	}
	b.state.lines = append(b.state.lines, sb.String())
	return nil
}

func (b *ChannelBuffer) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(b.attrs)+len(attrs))
	merged = append(merged, b.attrs...)
	merged = append(merged, attrs...)
	return &ChannelBuffer{state: b.state, attrs: merged, group: b.group}
}

func (b *ChannelBuffer) WithGroup(name string) slog.Handler {
	group := name
	if b.group != "" {
		group = b.group + "." + name
	}
	return &ChannelBuffer{state: b.state, attrs: b.attrs, group: group}
}
