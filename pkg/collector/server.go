package collector

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/log"
	"github.com/rubiojr/tracekit/pkg/version"
)

const (
	DefaultBufferSize = 1000
	maxBodyBytes      = 1 << 20
)

type Options struct {
	AuthToken        string // empty accepts everyone
	BufferSize       int    // recent entries kept, default 1000
	SubscriberBuffer int
}

// Server is a reference log collector. It accepts entries over HTTP POST and
// websocket text frames, keeps the most recent ones and fans them out to
// subscribers.
type Server struct {
	opts     Options
	hub      *Hub
	recent   *ring
	upgrader websocket.Upgrader
	handler  http.Handler
	started  time.Time
	logger   *log.Logger
}

func New(opts Options) *Server {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	s := &Server{
		opts:   opts,
		hub:    NewHub(opts.SubscriberBuffer),
		recent: newRing(opts.BufferSize),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		started: time.Now(),
		logger:  log.ForService("collector"),
	}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	s.handler = mux
	return s
}

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/logs", s.HandleIngest)
	mux.HandleFunc("GET /api/logs", s.HandleLogs)
	mux.HandleFunc("GET /api/logs/ws", s.HandleSocket)
	mux.HandleFunc("GET /api/health", s.HandleHealth)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Subscribe returns a channel receiving every accepted entry.
func (s *Server) Subscribe() (uint64, <-chan Received) {
	return s.hub.Subscribe()
}

func (s *Server) Unsubscribe(id uint64) {
	s.hub.Unsubscribe(id)
}

// Recent returns the buffered entries, oldest first.
func (s *Server) Recent() []Received {
	return s.recent.items()
}

// Count returns the number of entries accepted since start.
func (s *Server) Count() int {
	return s.recent.count()
}

func (s *Server) accept(entry core.Entry, via string) Received {
	if entry.Namespace == "" {
		entry.Namespace = core.DefaultNamespace
	}
	if entry.Timestamp == "" {
		entry.Timestamp = core.FormatTimestamp(time.Now())
	}
	r := Received{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		Via:        via,
		Entry:      entry,
	}
	s.recent.add(r)
	s.hub.Broadcast(r)
	s.logger.Debugf("accepted %s entry %s via %s", entry.Level, r.ID, via)
	return r
}

func (s *Server) authorized(token string) bool {
	if s.opts.AuthToken == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.opts.AuthToken)) == 1
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func (s *Server) HandleIngest(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(bearerToken(r)) {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", "Missing or invalid bearer token")
		return
	}

	var body io.Reader = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(body)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid body", fmt.Sprintf("gzip: %v", err))
			return
		}
		defer zr.Close()
		body = zr
	}

	var entry core.Entry
	if err := json.NewDecoder(body).Decode(&entry); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid entry", err.Error())
		return
	}
	rec := s.accept(entry, "http")
	s.writeJSON(w, http.StatusAccepted, map[string]string{"id": rec.ID})
}

// HandleLogs lists recent entries. Websocket upgrades on the same path are
// handed to HandleSocket so one URL serves both transports.
func (s *Server) HandleLogs(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.HandleSocket(w, r)
		return
	}
	if !s.authorized(bearerToken(r)) {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", "Missing or invalid bearer token")
		return
	}
	recent := s.Recent()
	s.writeJSON(w, http.StatusOK, LogsResponse{Logs: recent, Count: len(recent), Total: s.Count()})
}

// HandleSocket reads entries from websocket text frames. A bad ?token= is
// refused with 401 before the upgrade so the client's dial fails.
func (s *Server) HandleSocket(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r.URL.Query().Get("token")) {
		s.logger.Warnf("rejecting websocket client %s: bad token", r.RemoteAddr)
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", "Missing or invalid token")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxBodyBytes)
	s.logger.Debugf("websocket client connected: %s", r.RemoteAddr)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debugf("websocket client %s: %v", r.RemoteAddr, err)
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		var entry core.Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.logger.Warnf("dropping malformed frame from %s: %v", r.RemoteAddr, err)
			continue
		}
		s.accept(entry, "websocket")
	}
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Received:    s.Count(),
		Subscribers: s.hub.Size(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		Version:     version.Version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	s.writeJSON(w, status, ErrorResponse{Error: error, Message: message})
}

// CorsMiddleware allows cross-origin requests from any origin. The server
// does not apply it on its own.
func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Encoding, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type LogsResponse struct {
	Logs  []Received `json:"logs"`
	Count int        `json:"count"`
	Total int        `json:"total"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Received    int    `json:"received"`
	Subscribers int    `json:"subscribers"`
	Uptime      string `json:"uptime"`
	Version     string `json:"version"`
}
