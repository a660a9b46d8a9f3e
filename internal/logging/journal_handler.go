package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// JournalHandler writes records to the systemd journal. Attributes become
// journal fields, upper-cased and prefixed with their group names.
type JournalHandler struct {
	level  slog.Leveler
	prefix string
	fields map[string]string
}

// NewJournalHandler creates a journal handler gated by level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level, fields: map[string]string{}}
}

// Enabled reports whether the handler handles records at the given level.
func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle sends the record to the journal.
func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := journalPriority(r.Level)

	fields := make(map[string]string, len(h.fields)+r.NumAttrs()+2)
	for k, v := range h.fields {
		fields[k] = v
	}
	r.Attrs(func(attr slog.Attr) bool {
		putField(fields, h.prefix, attr)
		return true
	})
	fields["PRIORITY"] = strconv.Itoa(int(priority))
	fields["SYSLOG_IDENTIFIER"] = Identifier

	if err := journal.Send(r.Message, priority, fields); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		return err
	}
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make(map[string]string, len(h.fields)+len(attrs))
	for k, v := range h.fields {
		fields[k] = v
	}
	for _, attr := range attrs {
		putField(fields, h.prefix, attr)
	}
	return &JournalHandler{level: h.level, prefix: h.prefix, fields: fields}
}

// WithGroup returns a handler that prefixes later attributes with name.
func (h *JournalHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &JournalHandler{level: h.level, prefix: h.prefix + fieldName(name) + "_", fields: h.fields}
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// fieldName maps an attribute key to a valid journal field name. journald
// drops fields with anything but A-Z, 0-9 and underscore, or a leading digit
// or underscore.
func fieldName(key string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
	name = strings.TrimLeft(name, "_")
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		name = "F_" + name
	}
	return name
}

func putField(fields map[string]string, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if attr.Key != "" {
			groupPrefix += fieldName(attr.Key) + "_"
		}
		for _, a := range attr.Value.Group() {
			putField(fields, groupPrefix, a)
		}
		return
	}

	key := prefix + fieldName(attr.Key)
	switch attr.Value.Kind() {
	case slog.KindTime:
		fields[key] = attr.Value.Time().Format(time.RFC3339Nano)
	case slog.KindAny:
		if err, ok := attr.Value.Any().(error); ok {
			fields[key] = err.Error()
			return
		}
		fields[key] = attr.Value.String()
	default:
		fields[key] = attr.Value.String()
	}
}

// IsJournalAvailable reports whether the systemd journal socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}
