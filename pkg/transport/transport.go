package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rubiojr/tracekit/pkg/core"
)

// ErrUnknownKind is returned for an unsupported transport kind.
var ErrUnknownKind = errors.New("unknown transport kind")

// Transport delivers entries to a remote collector. Send reports success and
// never panics; failures are logged to the diagnostic channel.
type Transport interface {
	Send(ctx context.Context, entry core.Entry) bool
}

// Closer is implemented by transports holding resources.
type Closer interface {
	Close() error
}

// Connector is implemented by transports with a connection state.
type Connector interface {
	IsConnected() bool
}

// Close closes t if it implements Closer.
func Close(t Transport) error {
	if c, ok := t.(Closer); ok {
		return c.Close()
	}
	return nil
}

// IsConnected reports t's connection state, false when t is nil or has no
// notion of a connection.
func IsConnected(t Transport) bool {
	if c, ok := t.(Connector); ok {
		return c.IsConnected()
	}
	return false
}

// Kind selects a transport implementation.
type Kind int

const (
	KindHTTP Kind = iota
	KindWebSocket
	KindMemory
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindWebSocket:
		return "websocket"
	case KindMemory:
		return "memory"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Valid() bool {
	return k >= KindHTTP && k <= KindMemory
}

// ParseKind parses "http", "websocket" (or "ws") and "memory".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http", "https":
		return KindHTTP, nil
	case "websocket", "ws", "wss":
		return KindWebSocket, nil
	case "memory":
		return KindMemory, nil
	}
	return KindHTTP, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

const (
	DefaultTimeout              = 5 * time.Second
	DefaultRetryAttempts        = 3
	DefaultReconnectDelay       = 5 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultBackoffBase          = time.Second
	DefaultConnectTimeout       = 10 * time.Second
)

// Options configure the remote transports. Zero durations are replaced by
// the defaults above; zero counts are kept as given.
type Options struct {
	Timeout       time.Duration // per request, also the socket write deadline
	RetryAttempts int           // HTTP retries after the first try
	AuthToken     string

	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
	// ReconnectCooldown is how long the socket waits after giving up before
	// the reconnect budget is restored. Zero means ReconnectDelay scaled by
	// 2^MaxReconnectAttempts.
	ReconnectCooldown time.Duration
	FallbackToHTTP    bool
	FallbackURL       string

	Compress       bool          // gzip HTTP request bodies
	BackoffBase    time.Duration // first HTTP retry delay
	ConnectTimeout time.Duration
	Client         *http.Client
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Timeout:              DefaultTimeout,
		RetryAttempts:        DefaultRetryAttempts,
		ReconnectDelay:       DefaultReconnectDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		FallbackToHTTP:       true,
		BackoffBase:          DefaultBackoffBase,
		ConnectTimeout:       DefaultConnectTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.RetryAttempts < 0 {
		o.RetryAttempts = 0
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.MaxReconnectAttempts < 0 {
		o.MaxReconnectAttempts = 0
	}
	if o.ReconnectCooldown <= 0 {
		o.ReconnectCooldown = backoff(o.ReconnectDelay, o.MaxReconnectAttempts)
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = DefaultBackoffBase
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	return o
}

// maxShift bounds exponential delays so large attempt counts cannot overflow.
const maxShift = 16

// backoff returns base * 2^n.
func backoff(base time.Duration, n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > maxShift {
		n = maxShift
	}
	return base * time.Duration(1<<n)
}
