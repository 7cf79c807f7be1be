// Package debug provides the process-wide structured logger.
//
// Logging is off until Init(true) is called; until then every call is discarded,
// so library packages can log unconditionally.
package debug

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	logger  *slog.Logger
	enabled bool
	mu      sync.RWMutex
)

func init() {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Init turns debug logging to stderr on or off.
func Init(enable bool) {
	InitWithWriter(os.Stderr, enable)
}

// InitWithWriter is Init with an explicit destination, used by tests.
func InitWithWriter(w io.Writer, enable bool) {
	mu.Lock()
	defer mu.Unlock()

	enabled = enable
	if !enable {
		w = io.Discard
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Debug logs a debug message.
func Debug(msg string, args ...any) { current().Debug(msg, args...) }

// Info logs an info message.
func Info(msg string, args ...any) { current().Info(msg, args...) }

// Warn logs a warning message.
func Warn(msg string, args ...any) { current().Warn(msg, args...) }

// Error logs an error message.
func Error(msg string, args ...any) { current().Error(msg, args...) }

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger { return current().With(args...) }

// Logger returns the underlying slog.Logger instance.
func Logger() *slog.Logger { return current() }
