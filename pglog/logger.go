// Package pglog is pgnative's level-filtered logging front end. It is a
// thin wrapper over log/slog rather than a bespoke logger: Level is
// defined as a slog.Level so any application that already has
// slog.Handler plumbing (slog.NewJSONHandler, a bridge to Datadog/Sentry,
// etc.) can be substituted directly via SetHandler.
package pglog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Level is a slog.Level. The six named thresholds are spaced to interleave
// with slog's own Debug(-4)/Info(0)/Warn(4)/Error(8): Finer and Finest sit
// below Debug, Fine sits at Debug, and Warning/Severe line up with
// Warn/Error so a handler written against plain slog levels still makes
// sensible decisions.
type Level = slog.Level

const (
	LevelAll     Level = -12
	LevelFinest  Level = -8
	LevelFiner   Level = -6
	LevelFine    Level = -4 // == slog.LevelDebug
	LevelInfo    Level = 0  // == slog.LevelInfo
	LevelWarning Level = 4  // == slog.LevelWarn
	LevelSevere  Level = 8  // == slog.LevelError
	LevelOff     Level = 12
)

// Record is one log event: level, message, optional context, timestamp,
// source file, function, and line.
type Record struct {
	Level    Level
	Message  string
	Context  string
	Time     time.Time
	File     string
	Function string
	Line     int
}

// Logger dispatches Records to a pluggable slog.Handler, synchronously on
// the caller's goroutine (so log ordering matches call ordering) above a
// configurable threshold. The handler pointer and threshold are guarded by
// a mutex; log itself does not hold the lock while calling Handle.
type Logger struct {
	mu        sync.RWMutex
	handler   slog.Handler
	threshold Level
	context   string
}

// New returns a Logger using the default console handler at LevelInfo.
func New(context string) *Logger {
	return &Logger{
		handler:   NewConsoleHandler(os.Stderr),
		threshold: LevelInfo,
		context:   context,
	}
}

// SetHandler swaps the active slog.Handler.
func (l *Logger) SetHandler(h slog.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handler = h
}

// SetLevel changes the loggability threshold.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threshold = level
}

// IsLoggable reports level >= the current threshold.
func (l *Logger) IsLoggable(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.threshold
}

func (l *Logger) log(level Level, msg string) {
	if !l.IsLoggable(level) {
		return
	}
	l.mu.RLock()
	h := l.handler
	ctx := l.context
	l.mu.RUnlock()

	r := slog.NewRecord(time.Now().UTC(), level, msg, 0)
	if ctx != "" {
		r.AddAttrs(slog.String("context", ctx))
	}
	_ = h.Handle(context.Background(), r)
}

func (l *Logger) Finest(msg string, args ...any)  { l.log(LevelFinest, fmt.Sprintf(msg, args...)) }
func (l *Logger) Finer(msg string, args ...any)   { l.log(LevelFiner, fmt.Sprintf(msg, args...)) }
func (l *Logger) Fine(msg string, args ...any)    { l.log(LevelFine, fmt.Sprintf(msg, args...)) }
func (l *Logger) Info(msg string, args ...any)    { l.log(LevelInfo, fmt.Sprintf(msg, args...)) }
func (l *Logger) Warning(msg string, args ...any) { l.log(LevelWarning, fmt.Sprintf(msg, args...)) }
func (l *Logger) Severe(msg string, args ...any)  { l.log(LevelSevere, fmt.Sprintf(msg, args...)) }
