package pglog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// ConsoleHandler formats records as `[<ISO-8601 timestamp UTC> <context>
// <LEVEL>] <message>`, serialising writes with an internal lock so
// concurrent goroutines never interleave partial lines.
type ConsoleHandler struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleHandler returns a ConsoleHandler writing to w.
func NewConsoleHandler(w io.Writer) *ConsoleHandler {
	return &ConsoleHandler{w: w}
}

func (h *ConsoleHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	ctx := ""
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "context" {
			ctx = a.Value.String()
		}
		return true
	})

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[%s %s %s] %s\n",
		r.Time.UTC().Format("2006-01-02T15:04:05.000-07:00"),
		ctx,
		levelName(r.Level),
		r.Message,
	)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler { return h }
func (h *ConsoleHandler) WithGroup(name string) slog.Handler       { return h }

func levelName(l slog.Level) string {
	switch {
	case l <= LevelFinest:
		return "FINEST"
	case l <= LevelFiner:
		return "FINER"
	case l <= LevelFine:
		return "FINE"
	case l < LevelWarning:
		return "INFO"
	case l < LevelSevere:
		return "WARNING"
	default:
		return "SEVERE"
	}
}
