package accel

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled reports false so callers skip formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine,
// including the render queue worker and the UI thread.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for accel and all its sub-packages.
// By default, accel produces no log output.
//
// Pass nil to restore the default silent behavior.
//
// Log levels used by accel:
//   - [slog.LevelDebug]: representation choices, cache hits and misses,
//     handle reference counts
//   - [slog.LevelInfo]: lifecycle events (backend initialized, config
//     acquired, native configuration released)
//   - [slog.LevelWarn]: fallbacks (unaccelerated surfaces, cache disabled
//     after an allocation failure)
//
// Example:
//
//	accel.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by accel.
// Sub-packages call this so they share one logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
