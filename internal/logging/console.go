package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
)

const consoleClock = "15:04:05"

// consoleHandler writes one line per record for terminal use:
//
//	15:04:05 INFO  reconcile  SEQ_010/vfx_010: shot created  outcome=created
//
// Warnings and errors move the error hint onto an indented line below.
type consoleHandler struct {
	out    *consoleOutput
	level  slog.Leveler
	fields []field
	prefix string
}

type consoleOutput struct {
	mu     sync.Mutex
	w      io.Writer
	color  bool
	source bool
}

func newConsoleHandler(w io.Writer, lvl slog.Leveler, color, source bool) slog.Handler {
	return &consoleHandler{
		out:   &consoleOutput{w: w, color: color, source: source},
		level: lvl,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.fields...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})
	fields = lastWins(fields)

	var component, subject, hint string
	inline := make([]string, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = plain(f.value)
		case FieldSubject:
			subject = plain(f.value)
		case FieldErrorHint:
			hint = plain(f.value)
		case FieldSessionID:
			if record.Level < slog.LevelInfo {
				inline = append(inline, "session="+shortID(plain(f.value)))
			}
		case FieldRequestID:
			if record.Level < slog.LevelInfo {
				inline = append(inline, "request="+shortID(plain(f.value)))
			}
		default:
			inline = append(inline, f.key+"="+render(f.value))
		}
	}

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	b.WriteString(when.Local().Format(consoleClock))
	b.WriteByte(' ')
	b.WriteString(h.out.paint(record.Level, padLevel(record.Level)))
	if component != "" {
		b.WriteString(" ")
		b.WriteString(component)
		b.WriteString(" ")
	}
	b.WriteByte(' ')
	if subject != "" {
		b.WriteString(subject)
		b.WriteString(": ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if len(inline) > 0 {
		b.WriteString("  ")
		b.WriteString(strings.Join(inline, " "))
	}
	if h.out.source {
		if src := record.Source(); src != nil && src.File != "" {
			b.WriteString(" (")
			b.WriteString(filepath.Base(src.File))
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(src.Line))
			b.WriteByte(')')
		}
	}
	b.WriteByte('\n')
	if hint != "" && record.Level >= slog.LevelWarn {
		b.WriteString(strings.Repeat(" ", len(consoleClock)+1))
		b.WriteString("hint: ")
		b.WriteString(hint)
		b.WriteByte('\n')
	}

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = append([]field(nil), h.fields...)
	for _, attr := range attrs {
		next.fields = appendField(next.fields, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (o *consoleOutput) paint(level slog.Level, label string) string {
	if !o.color {
		return label
	}
	switch {
	case level >= slog.LevelError:
		return text.Colors{text.FgHiRed, text.Bold}.Sprint(label)
	case level >= slog.LevelWarn:
		return text.FgYellow.Sprint(label)
	case level >= slog.LevelInfo:
		return text.FgCyan.Sprint(label)
	default:
		return text.Faint.Sprint(label)
	}
}

func padLevel(level slog.Level) string {
	label := "DEBUG"
	switch {
	case level >= slog.LevelError:
		label = "ERROR"
	case level >= slog.LevelWarn:
		label = "WARN"
	case level >= slog.LevelInfo:
		label = "INFO"
	}
	return label + strings.Repeat(" ", 5-len(label))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
