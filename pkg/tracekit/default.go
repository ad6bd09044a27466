package tracekit

import (
	"sync"

	"github.com/rubiojr/tracekit/pkg/core"
)

var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// Default returns the process-wide logger used by the package-level
// functions, building it from DefaultConfig on first use.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		l, err := New()
		if err != nil {
			panic("tracekit: default config is invalid: " + err.Error())
		}
		defaultLogger = l
	}
	return defaultLogger
}

// SetDefault replaces the default logger. The previous one is not closed.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// ResetDefault flushes and closes the default logger and forgets it, so the
// next call to Default starts fresh.
func ResetDefault() error {
	defaultMu.Lock()
	l := defaultLogger
	defaultLogger = nil
	defaultMu.Unlock()

	if l == nil {
		return nil
	}
	l.Flush()
	return l.Close()
}

func Debug(msg string, opts ...CallOption)   { Default().Log(core.LevelDebug, msg, opts...) }
func Trace(msg string, opts ...CallOption)   { Default().Log(core.LevelTrace, msg, opts...) }
func Info(msg string, opts ...CallOption)    { Default().Log(core.LevelInfo, msg, opts...) }
func Success(msg string, opts ...CallOption) { Default().Log(core.LevelSuccess, msg, opts...) }
func Warn(msg string, opts ...CallOption)    { Default().Log(core.LevelWarn, msg, opts...) }
func Error(msg string, opts ...CallOption)   { Default().Log(core.LevelError, msg, opts...) }
func Fatal(msg string, opts ...CallOption)   { Default().Log(core.LevelFatal, msg, opts...) }

func Configure(opts ...Option) error { return Default().Configure(opts...) }
func GetConfig() Config              { return Default().Config() }
func IsConnected() bool              { return Default().IsConnected() }
func Flush()                         { Default().Flush() }

// Close closes the default logger's transport; the logger itself stays the
// default.
func Close() error { return Default().Close() }
