package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/log"
)

// Close codes a collector uses to reject a token.
const (
	ClosePolicyViolation = websocket.ClosePolicyViolation // 1008
	CloseUnauthorized    = 4001
)

// State is the socket connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "disconnected"
}

// Socket keeps one websocket open to the collector, reconnecting with
// exponential backoff and handing sends to an HTTP fallback while the
// socket is down.
type Socket struct {
	url      string
	opts     Options
	dialer   *websocket.Dialer
	fallback *HTTP
	logger   *log.Logger
	connect  singleflight.Group

	mu       sync.Mutex
	conn     *websocket.Conn
	state    State
	attempts int
	timer    *time.Timer
	gaveUpAt time.Time
	closed   bool

	writeMu sync.Mutex
}

func NewSocket(rawURL string, opts Options) *Socket {
	opts = opts.withDefaults()
	s := &Socket{
		url:  withToken(rawURL, opts.AuthToken),
		opts: opts,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.ConnectTimeout,
		},
		logger: log.ForService("transport:websocket"),
	}
	if opts.FallbackToHTTP && opts.FallbackURL != "" {
		s.fallback = NewHTTP(opts.FallbackURL, opts)
	}
	return s
}

// withToken appends the url-encoded token as a query parameter.
func withToken(rawURL, token string) string {
	if token == "" {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "token=" + url.QueryEscape(token)
}

// Fallback returns the HTTP fallback, nil when none is configured.
func (s *Socket) Fallback() *HTTP {
	return s.fallback
}

func (s *Socket) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Socket) IsConnected() bool {
	return s.State() == StateConnected
}

// ReconnectAttempts returns the scheduled reconnects since the last
// successful open.
func (s *Socket) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Send writes entry as a text frame. When no connection can be made, or the
// write fails, the entry goes to the HTTP fallback if there is one.
func (s *Socket) Send(ctx context.Context, entry core.Entry) bool {
	if s.ensureConnection() && s.write(entry) {
		return true
	}
	if s.fallback != nil {
		s.logger.Debugf("socket unavailable, sending %s entry over HTTP", entry.Level)
		return s.fallback.Send(ctx, entry)
	}
	return false
}

// ensureConnection returns true when a socket is open. Concurrent callers
// share a single dial. After giving up it does not dial again until the
// cooldown has passed.
func (s *Socket) ensureConnection() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.conn != nil {
		s.mu.Unlock()
		return true
	}
	s.restoreBudget()
	if !s.gaveUpAt.IsZero() {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	v, _, _ := s.connect.Do("connect", func() (any, error) {
		return s.dial(), nil
	})
	return v.(bool)
}

// restoreBudget resets the reconnect counter once the cooldown after giving
// up has passed. Callers hold s.mu.
func (s *Socket) restoreBudget() {
	if s.gaveUpAt.IsZero() || time.Since(s.gaveUpAt) < s.opts.ReconnectCooldown {
		return
	}
	s.logger.Infof("reconnect cooldown elapsed, retrying")
	s.attempts = 0
	s.gaveUpAt = time.Time{}
}

func (s *Socket) dial() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if s.conn != nil {
		s.mu.Unlock()
		return true
	}
	s.state = StateConnecting
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConnectTimeout)
	defer cancel()

	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.setState(StateDisconnected)
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			s.logger.Errorf("authentication rejected (HTTP %d), not reconnecting", resp.StatusCode)
			return false
		}
		s.logger.Warnf("connect failed: %v", err)
		s.scheduleReconnect()
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return false
	}
	s.conn = conn
	s.state = StateConnected
	s.attempts = 0
	s.gaveUpAt = time.Time{}
	s.mu.Unlock()

	s.logger.Debugf("connected")
	go s.readLoop(conn)
	return true
}

func (s *Socket) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// readLoop drains server frames so close frames are observed.
func (s *Socket) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.disconnected(conn, err)
			return
		}
	}
}

func (s *Socket) write(entry core.Entry) bool {
	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Errorf("encoding entry: %v", err)
		return false
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return false
	}

	s.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(s.opts.Timeout))
	err = conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		s.disconnected(conn, err)
		return false
	}
	return true
}

// disconnected handles the loss of conn. Auth close codes end the
// connection for good; anything else schedules a reconnect.
func (s *Socket) disconnected(conn *websocket.Conn, cause error) {
	s.mu.Lock()
	if s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	closed := s.closed
	s.mu.Unlock()

	conn.Close()
	if closed {
		return
	}
	if websocket.IsCloseError(cause, ClosePolicyViolation, CloseUnauthorized) {
		s.logger.Errorf("collector rejected authentication (%v), not reconnecting", cause)
		return
	}
	s.logger.Warnf("connection lost: %v", cause)
	s.scheduleReconnect()
}

func (s *Socket) scheduleReconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.timer != nil {
		return
	}
	if s.attempts >= s.opts.MaxReconnectAttempts {
		if s.gaveUpAt.IsZero() {
			s.gaveUpAt = time.Now()
			s.logger.Errorf("giving up after %d reconnect attempts (next try after %s)", s.attempts, s.opts.ReconnectCooldown)
		}
		return
	}

	s.attempts++
	delay := backoff(s.opts.ReconnectDelay, s.attempts-1)
	s.logger.Warnf("reconnecting in %s (attempt %d/%d)", delay, s.attempts, s.opts.MaxReconnectAttempts)
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		s.timer = nil
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			s.ensureConnection()
		}
	})
}

// Close shuts the socket and cancels any pending reconnect. The transport
// cannot be reopened; later sends use the fallback only.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.attempts = s.opts.MaxReconnectAttempts
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	conn := s.conn
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	s.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return conn.Close()
}
