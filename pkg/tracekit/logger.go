package tracekit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/log"
	"github.com/rubiojr/tracekit/pkg/render"
	"github.com/rubiojr/tracekit/pkg/transport"
)

// ErrRemoteSend is reported to the error handler when a transport could not
// deliver an entry.
var ErrRemoteSend = errors.New("remote delivery failed")

// boxMinWidth is the content width floor for bordered boxes.
const boxMinWidth = 50

// Logger writes leveled entries to a terminal and forwards the eligible ones
// to a remote collector in the background.
type Logger struct {
	mu        sync.RWMutex
	cfg       Config
	box       *render.Box
	transport transport.Transport

	outMu    sync.Mutex
	inflight pending
	diag     *log.Logger
}

// New builds a logger from DefaultConfig with opts applied. It fails when the
// resulting configuration is invalid.
func New(opts ...Option) (*Logger, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	l := &Logger{
		cfg:  cfg,
		box:  newBox(cfg),
		diag: log.ForService("tracekit"),
	}
	if cfg.EnableRemote {
		tr, err := newTransport(cfg)
		if err != nil {
			return nil, err
		}
		l.transport = tr
	}
	return l, nil
}

func newBox(cfg Config) *render.Box {
	return render.NewBox(cfg.DefaultBorderStyle, cfg.DefaultPadding, cfg.EnableColors)
}

func newTransport(cfg Config) (transport.Transport, error) {
	tr, err := transport.New(cfg.TransportType, cfg.RemoteURL(), cfg.transportOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return tr, nil
}

func (l *Logger) Debug(msg string, opts ...CallOption)   { l.Log(core.LevelDebug, msg, opts...) }
func (l *Logger) Trace(msg string, opts ...CallOption)   { l.Log(core.LevelTrace, msg, opts...) }
func (l *Logger) Info(msg string, opts ...CallOption)    { l.Log(core.LevelInfo, msg, opts...) }
func (l *Logger) Success(msg string, opts ...CallOption) { l.Log(core.LevelSuccess, msg, opts...) }
func (l *Logger) Warn(msg string, opts ...CallOption)    { l.Log(core.LevelWarn, msg, opts...) }
func (l *Logger) Error(msg string, opts ...CallOption)   { l.Log(core.LevelError, msg, opts...) }

// Fatal logs at the fatal level. It does not exit the process.
func (l *Logger) Fatal(msg string, opts ...CallOption) { l.Log(core.LevelFatal, msg, opts...) }

// Log renders the entry and, when it qualifies, starts a background send.
// Entries below MinLevel are dropped without output.
func (l *Logger) Log(level core.Level, msg string, opts ...CallOption) {
	l.mu.RLock()
	cfg, box, tr := l.cfg, l.box, l.transport
	l.mu.RUnlock()

	if !level.Valid() || !level.Enabled(cfg.MinLevel) {
		return
	}

	cc := newCallConfig(opts)
	ns := cfg.Namespace
	if cc.namespace != "" {
		ns = cc.namespace
	}
	entry := core.NewEntry(level, ns, msg, cc.metadata)
	l.print(cfg, box, entry, cc)

	if shouldForward(cfg, cc, level) && tr != nil {
		l.sendAsync(tr, entry, cfg.ErrorHandler)
	}
}

// shouldForward applies the remote gate: remote on, not skipped, an eligible
// level and at or above RemoteMinLevel.
func shouldForward(cfg Config, cc callConfig, level core.Level) bool {
	return cfg.EnableRemote &&
		!cc.skipRemote &&
		core.RemoteEligible(level) &&
		level.Enabled(cfg.RemoteMinLevel)
}

func (l *Logger) print(cfg Config, box *render.Box, entry core.Entry, cc callConfig) {
	boxed := cfg.DefaultBoxed
	if cc.boxed != nil {
		boxed = *cc.boxed
	}

	var out string
	if boxed {
		if cc.borderStyle != nil || cc.padding != nil {
			style, padding := cfg.DefaultBorderStyle, cfg.DefaultPadding
			if cc.borderStyle != nil {
				style = *cc.borderStyle
			}
			if cc.padding != nil {
				padding = *cc.padding
			}
			box = render.NewBox(style, padding, cfg.EnableColors)
		}
		title := render.DefaultTitle(entry)
		if cc.title != nil {
			title = *cc.title
		}
		color := cc.color
		if color == nil {
			color = render.LevelColor(entry.Level)
		}
		out = box.Render(render.BoxContent(entry, cfg.EnableTimestamp), render.BoxOptions{
			Title:    title,
			Color:    color,
			Centered: cc.centered,
			MinWidth: boxMinWidth,
		})
	} else {
		out = render.FormatSimple(entry, render.SimpleOptions{
			Timestamp: cfg.EnableTimestamp,
			Colors:    cfg.EnableColors,
			Color:     cc.color,
		})
	}

	l.outMu.Lock()
	defer l.outMu.Unlock()
	if _, err := fmt.Fprintln(cfg.Output, out); err != nil {
		l.diag.Debugf("writing terminal output: %v", err)
	}
}

// sendAsync delivers entry on its own goroutine. Failures and panics go to
// the error handler; the caller never waits.
func (l *Logger) sendAsync(tr transport.Transport, entry core.Entry, handler func(error)) {
	if handler == nil {
		handler = l.reportError
	}
	l.inflight.add()
	go func() {
		defer l.inflight.done()
		defer func() {
			if r := recover(); r != nil {
				handler(fmt.Errorf("%w: panic: %v", ErrRemoteSend, r))
			}
		}()
		if !tr.Send(context.Background(), entry) {
			handler(fmt.Errorf("%w: %s entry in %s", ErrRemoteSend, entry.Level, entry.Namespace))
		}
	}()
}

func (l *Logger) reportError(err error) {
	l.diag.Errorf("failed to send log to remote: %v", err)
}

// Configure applies opts over the current configuration. An invalid result
// is rejected and the logger keeps its previous settings. Changing the
// remote switch, transport type, auth token or endpoint closes the current
// transport and, if remote is still on, opens a new one.
func (l *Logger) Configure(opts ...Option) error {
	l.mu.Lock()
	next := l.cfg
	for _, opt := range opts {
		opt(&next)
	}
	if err := next.validate(); err != nil {
		l.mu.Unlock()
		return err
	}

	var old transport.Transport
	if l.cfg.needsNewTransport(next) {
		var fresh transport.Transport
		if next.EnableRemote {
			tr, err := newTransport(next)
			if err != nil {
				l.mu.Unlock()
				return err
			}
			fresh = tr
		}
		old, l.transport = l.transport, fresh
	}
	l.cfg = next
	l.box = newBox(next)
	l.mu.Unlock()

	if old != nil {
		if err := transport.Close(old); err != nil {
			l.diag.Warnf("closing previous transport: %v", err)
		}
	}
	return nil
}

// Config returns a copy of the current configuration.
func (l *Logger) Config() Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

// Transport returns the active transport, nil when remote is off or the
// logger is closed.
func (l *Logger) Transport() transport.Transport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.transport
}

// IsConnected reports the transport's connection state.
func (l *Logger) IsConnected() bool {
	return transport.IsConnected(l.Transport())
}

// Flush waits until no background sends are in flight. Other goroutines may
// keep logging while it waits.
func (l *Logger) Flush() {
	l.inflight.wait()
}

// Close releases the transport. Calling it again is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	tr := l.transport
	l.transport = nil
	l.mu.Unlock()

	if tr == nil {
		return nil
	}
	return transport.Close(tr)
}
