package logging

import (
	"context"
	"log/slog"
	"maps"
	"time"
)

// BufferHandler is a slog.Handler that keeps records in the history
// buffer served by /api/logs. The "module" attribute is lifted out of the
// attributes into LogEntry.Module; group names become dotted key prefixes.
type BufferHandler struct {
	level  slog.Leveler
	module string
	prefix string
	attrs  map[string]any
}

// NewBufferHandler creates a handler writing to the history buffer
// set up by Initialize. Records are dropped until then.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level, module: "main"}
}

// Enabled implements slog.Handler.
func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	mutex.RLock()
	buf := history
	mutex.RUnlock()
	if buf == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp:  r.Time,
		Level:      levelName(r.Level),
		Module:     h.module,
		Message:    r.Message,
		Attributes: maps.Clone(h.attrs),
	}
	if entry.Attributes == nil {
		entry.Attributes = make(map[string]any, r.NumAttrs())
	}
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == "module" {
			entry.Module = a.Value.String()
			return true
		}
		putAttr(entry.Attributes, h.prefix, a)
		return true
	})

	buf.Write(entry)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &BufferHandler{level: h.level, module: h.module, prefix: h.prefix, attrs: maps.Clone(h.attrs)}
	if next.attrs == nil {
		next.attrs = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		if h.prefix == "" && a.Key == "module" {
			next.module = a.Value.String()
			continue
		}
		putAttr(next.attrs, h.prefix, a)
	}
	return next
}

// WithGroup implements slog.Handler.
func (h *BufferHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &BufferHandler{level: h.level, module: h.module, prefix: h.prefix + name + ".", attrs: h.attrs}
}

func putAttr(attrs map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := prefix + a.Key
	switch a.Value.Kind() {
	case slog.KindGroup:
		sub := prefix
		if a.Key != "" {
			sub = key + "."
		}
		for _, ga := range a.Value.Group() {
			putAttr(attrs, sub, ga)
		}
	case slog.KindTime:
		attrs[key] = a.Value.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		attrs[key] = a.Value.Duration().String()
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			attrs[key] = err.Error()
			return
		}
		attrs[key] = a.Value.Any()
	default:
		attrs[key] = a.Value.Any()
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
