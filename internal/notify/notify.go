package notify

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// #region notifier

// Notifier announces phase transitions to an operator.
type Notifier interface {
	Info(ctx context.Context, msg string)
	Warn(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
	Debug(ctx context.Context, msg string)
}

// SlogNotifier writes prefixed messages through a slog.Logger.
// In prod, debug messages are dropped regardless of the logger level.
type SlogNotifier struct {
	logger *slog.Logger
	prefix string
	prod   bool
}

// New creates a notifier. The prefix is "[agent:prod]" in prod and "[agent]" otherwise.
func New(logger *slog.Logger, prod bool) *SlogNotifier {
	prefix := "[agent]"
	if prod {
		prefix = "[agent:prod]"
	}
	return &SlogNotifier{logger: logger, prefix: prefix, prod: prod}
}

// Info logs msg at info level.
func (n *SlogNotifier) Info(ctx context.Context, msg string) {
	n.logger.InfoContext(ctx, n.prefix+" "+msg)
}

// Warn logs msg at warn level.
func (n *SlogNotifier) Warn(ctx context.Context, msg string) {
	n.logger.WarnContext(ctx, n.prefix+" "+msg)
}

// Error logs msg at error level.
func (n *SlogNotifier) Error(ctx context.Context, msg string) {
	n.logger.ErrorContext(ctx, n.prefix+" "+msg)
}

// Debug logs msg at debug level unless running in prod.
func (n *SlogNotifier) Debug(ctx context.Context, msg string) {
	if n.prod {
		return
	}
	n.logger.DebugContext(ctx, n.prefix+" "+msg)
}

var _ Notifier = (*SlogNotifier)(nil)

// #endregion notifier

// #region logger

// NewLogger builds the process logger from AUTOPILOT_LOG_LEVEL and
// AUTOPILOT_LOG_FORMAT (text or json), writing to stderr.
func NewLogger() *slog.Logger {
	return NewLoggerTo(os.Stderr, os.Getenv("AUTOPILOT_LOG_LEVEL"), os.Getenv("AUTOPILOT_LOG_FORMAT"))
}

// NewLoggerTo builds a logger writing to w.
func NewLoggerTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// #endregion logger

// #region recorder

// Entry is one recorded notification.
type Entry struct {
	Level   string
	Message string
}

// Recorder keeps notifications in memory for tests and replay.
type Recorder struct {
	mu      sync.Mutex
	Entries []Entry
}

func (r *Recorder) add(level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, Entry{Level: level, Message: msg})
}

// Info records msg at "info".
func (r *Recorder) Info(_ context.Context, msg string) { r.add("info", msg) }

// Warn records msg at "warn".
func (r *Recorder) Warn(_ context.Context, msg string) { r.add("warn", msg) }

// Error records msg at "error".
func (r *Recorder) Error(_ context.Context, msg string) { r.add("error", msg) }

// Debug records msg at "debug".
func (r *Recorder) Debug(_ context.Context, msg string) { r.add("debug", msg) }

// Messages returns the recorded messages at the given level ("" for all).
func (r *Recorder) Messages(level string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.Entries {
		if level == "" || e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any message at level contains substr.
func (r *Recorder) Contains(level, substr string) bool {
	for _, m := range r.Messages(level) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// #endregion recorder
