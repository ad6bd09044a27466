package transport

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/tracekit/pkg/core"
)

type refusingTransport struct {
	calls atomic.Int32
}

func (rt *refusingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	rt.calls.Add(1)
	return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
}

func TestHTTPRetriesWithBackoff(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		times = append(times, time.Now())
		n := len(times)
		mu.Unlock()
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	base := 20 * time.Millisecond
	h := NewHTTP(srv.URL, Options{RetryAttempts: 3, BackoffBase: base, Timeout: time.Second})

	ok := h.Send(context.Background(), entry(core.LevelInfo, "api", "hello"))
	require.True(t, ok)
	assert.Equal(t, 3, h.Attempts())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), base)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 2*base)
}

func TestHTTPStopsOnUnreachableHost(t *testing.T) {
	rt := &refusingTransport{}
	h := NewHTTP("http://collector.invalid/api/logs", Options{
		RetryAttempts: 3,
		BackoffBase:   time.Hour,
		Client:        &http.Client{Transport: rt},
	})

	start := time.Now()
	assert.False(t, h.Send(context.Background(), entry(core.LevelError, "api", "down")))
	assert.Equal(t, 1, h.Attempts())
	assert.EqualValues(t, 1, rt.calls.Load())
	assert.Less(t, time.Since(start), time.Minute)
}

func TestHTTPStopsOnUnauthorized(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, Options{RetryAttempts: 3, BackoffBase: time.Hour, AuthToken: "bad"})
	assert.False(t, h.Send(context.Background(), entry(core.LevelWarn, "api", "x")))
	assert.EqualValues(t, 1, hits.Load())
	assert.Equal(t, 1, h.Attempts())
}

func TestHTTPExhaustsAttempts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, Options{RetryAttempts: 2, BackoffBase: time.Millisecond})
	assert.False(t, h.Send(context.Background(), entry(core.LevelError, "api", "x")))
	assert.EqualValues(t, 3, hits.Load())
}

func TestHTTPRetriesTimeouts(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, Options{RetryAttempts: 1, Timeout: 50 * time.Millisecond, BackoffBase: time.Millisecond})
	assert.True(t, h.Send(context.Background(), entry(core.LevelInfo, "api", "x")))
	assert.Equal(t, 2, h.Attempts())
}

func TestHTTPCancelStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	h := NewHTTP(srv.URL, Options{RetryAttempts: 3, BackoffBase: time.Hour})
	assert.False(t, h.Send(ctx, entry(core.LevelInfo, "api", "x")))
	assert.Equal(t, 1, h.Attempts())
}

func TestHTTPRequestFormat(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
	}{
		{"plain", false},
		{"gzip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got     core.Entry
				headers http.Header
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				headers = r.Header.Clone()
				var body io.Reader = r.Body
				if r.Header.Get("Content-Encoding") == "gzip" {
					zr, err := gzip.NewReader(r.Body)
					if err != nil {
						w.WriteHeader(http.StatusBadRequest)
						return
					}
					body = zr
				}
				if err := json.NewDecoder(body).Decode(&got); err != nil {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				w.WriteHeader(http.StatusAccepted)
			}))
			defer srv.Close()

			h := NewHTTP(srv.URL, Options{AuthToken: "t0k", Compress: tt.compress})
			sent := entry(core.LevelFatal, "db", "gone")
			sent.Metadata = map[string]any{"code": "E1"}
			require.True(t, h.Send(context.Background(), sent))

			assert.Equal(t, "application/json", headers.Get("Content-Type"))
			assert.Equal(t, "Bearer t0k", headers.Get("Authorization"))
			assert.True(t, strings.HasPrefix(headers.Get("User-Agent"), "tracekit/"))
			assert.Equal(t, sent, got)
		})
	}
}

func TestHTTPNoAuthHeaderWithoutToken(t *testing.T) {
	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	h := NewHTTP(srv.URL, Options{})
	require.True(t, h.Send(context.Background(), entry(core.LevelInfo, "x", "y")))
	assert.Equal(t, "", auth.Load())
	assert.True(t, IsConnected(h))
}
