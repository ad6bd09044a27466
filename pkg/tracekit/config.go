package tracekit

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/render"
	"github.com/rubiojr/tracekit/pkg/transport"
)

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid tracekit config")

const (
	DefaultHTTPURL   = "https://logsify.onrender.com/api/logs"
	DefaultSocketURL = "wss://logsify.onrender.com/api/logs"
)

// Config is the complete logger configuration. Every field always holds a
// value; partial updates are expressed as Options.
type Config struct {
	Namespace       string
	EnableTimestamp bool
	EnableColors    bool

	DefaultBoxed       bool
	DefaultBorderStyle render.BorderStyle
	DefaultPadding     int

	EnableRemote           bool
	TransportType          transport.Kind
	HTTPURL                string
	SocketURL              string
	Timeout                time.Duration
	RetryAttempts          int
	AuthToken              string
	WSReconnectDelay       time.Duration
	WSMaxReconnectAttempts int
	FallbackToHTTP         bool
	Compress               bool

	MinLevel       core.Level
	RemoteMinLevel core.Level

	Output       io.Writer
	ErrorHandler func(error) // receives remote delivery failures
}

// DefaultConfig returns the defaults used by New.
func DefaultConfig() Config {
	return Config{
		Namespace:              core.DefaultNamespace,
		EnableTimestamp:        true,
		EnableColors:           true,
		DefaultBoxed:           false,
		DefaultBorderStyle:     render.BorderRounded,
		DefaultPadding:         1,
		EnableRemote:           false,
		TransportType:          transport.KindHTTP,
		HTTPURL:                DefaultHTTPURL,
		SocketURL:              DefaultSocketURL,
		Timeout:                transport.DefaultTimeout,
		RetryAttempts:          transport.DefaultRetryAttempts,
		WSReconnectDelay:       transport.DefaultReconnectDelay,
		WSMaxReconnectAttempts: transport.DefaultMaxReconnectAttempts,
		FallbackToHTTP:         true,
		MinLevel:               core.LevelDebug,
		RemoteMinLevel:         core.LevelInfo,
		Output:                 os.Stdout,
	}
}

// RemoteURL is the endpoint of the selected transport.
func (c Config) RemoteURL() string {
	if c.TransportType == transport.KindWebSocket {
		return c.SocketURL
	}
	return c.HTTPURL
}

func (c Config) transportOptions() transport.Options {
	return transport.Options{
		Timeout:              c.Timeout,
		RetryAttempts:        c.RetryAttempts,
		AuthToken:            c.AuthToken,
		ReconnectDelay:       c.WSReconnectDelay,
		MaxReconnectAttempts: c.WSMaxReconnectAttempts,
		FallbackToHTTP:       c.FallbackToHTTP,
		FallbackURL:          c.HTTPURL,
		Compress:             c.Compress,
	}
}

// needsNewTransport reports whether moving from c to next replaces the
// transport.
func (c Config) needsNewTransport(next Config) bool {
	return c.EnableRemote != next.EnableRemote ||
		c.TransportType != next.TransportType ||
		c.AuthToken != next.AuthToken ||
		c.RemoteURL() != next.RemoteURL()
}

func (c Config) validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	switch {
	case !c.MinLevel.Valid():
		return invalid("min level %d", int(c.MinLevel))
	case !c.RemoteMinLevel.Valid():
		return invalid("remote min level %d", int(c.RemoteMinLevel))
	case !c.DefaultBorderStyle.Valid():
		return invalid("border style %d", int(c.DefaultBorderStyle))
	case !c.TransportType.Valid():
		return invalid("transport type %d", int(c.TransportType))
	case c.DefaultPadding < 0:
		return invalid("padding must not be negative, got %d", c.DefaultPadding)
	case c.Timeout <= 0:
		return invalid("timeout must be positive, got %s", c.Timeout)
	case c.RetryAttempts < 0:
		return invalid("retry attempts must not be negative, got %d", c.RetryAttempts)
	case c.WSReconnectDelay <= 0:
		return invalid("reconnect delay must be positive, got %s", c.WSReconnectDelay)
	case c.WSMaxReconnectAttempts < 0:
		return invalid("max reconnect attempts must not be negative, got %d", c.WSMaxReconnectAttempts)
	case c.Output == nil:
		return invalid("output writer is nil")
	}

	if c.EnableRemote && c.TransportType != transport.KindMemory {
		u, err := url.Parse(c.RemoteURL())
		if err != nil || u.Host == "" {
			return invalid("remote url %q", c.RemoteURL())
		}
	}
	return nil
}

// Option updates one Config field.
type Option func(*Config)

func WithNamespace(ns string) Option {
	return func(c *Config) {
		if ns == "" {
			ns = core.DefaultNamespace
		}
		c.Namespace = ns
	}
}

func WithTimestamp(enabled bool) Option {
	return func(c *Config) { c.EnableTimestamp = enabled }
}

func WithColors(enabled bool) Option {
	return func(c *Config) { c.EnableColors = enabled }
}

func WithDefaultBoxed(boxed bool) Option {
	return func(c *Config) { c.DefaultBoxed = boxed }
}

func WithDefaultBorderStyle(style render.BorderStyle) Option {
	return func(c *Config) { c.DefaultBorderStyle = style }
}

func WithDefaultPadding(padding int) Option {
	return func(c *Config) { c.DefaultPadding = padding }
}

// WithRemote enables or disables forwarding to the collector.
func WithRemote(enabled bool) Option {
	return func(c *Config) { c.EnableRemote = enabled }
}

func WithTransportType(kind transport.Kind) Option {
	return func(c *Config) { c.TransportType = kind }
}

func WithHTTPURL(u string) Option {
	return func(c *Config) { c.HTTPURL = u }
}

func WithSocketURL(u string) Option {
	return func(c *Config) { c.SocketURL = u }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithRetryAttempts(n int) Option {
	return func(c *Config) { c.RetryAttempts = n }
}

func WithAuthToken(token string) Option {
	return func(c *Config) { c.AuthToken = token }
}

func WithReconnectDelay(d time.Duration) Option {
	return func(c *Config) { c.WSReconnectDelay = d }
}

func WithMaxReconnectAttempts(n int) Option {
	return func(c *Config) { c.WSMaxReconnectAttempts = n }
}

func WithFallbackToHTTP(enabled bool) Option {
	return func(c *Config) { c.FallbackToHTTP = enabled }
}

// WithCompression gzips HTTP request bodies.
func WithCompression(enabled bool) Option {
	return func(c *Config) { c.Compress = enabled }
}

func WithMinLevel(level core.Level) Option {
	return func(c *Config) { c.MinLevel = level }
}

func WithRemoteMinLevel(level core.Level) Option {
	return func(c *Config) { c.RemoteMinLevel = level }
}

func WithOutput(w io.Writer) Option {
	return func(c *Config) { c.Output = w }
}

func WithErrorHandler(fn func(error)) Option {
	return func(c *Config) { c.ErrorHandler = fn }
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Config) { *c = cfg }
}
