package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/bytebufferpool"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/log"
	"github.com/rubiojr/tracekit/pkg/version"
)

var errUnauthorized = errors.New("authentication failed")

// HTTP posts each entry as JSON. It keeps no connection state and retries
// with exponential backoff.
type HTTP struct {
	url      string
	opts     Options
	attempts atomic.Int64
	logger   *log.Logger
}

func NewHTTP(url string, opts Options) *HTTP {
	return &HTTP{
		url:    url,
		opts:   opts.withDefaults(),
		logger: log.ForService("transport:http"),
	}
}

// URL returns the collector endpoint.
func (h *HTTP) URL() string {
	return h.url
}

// Attempts returns the number of requests issued so far.
func (h *HTTP) Attempts() int {
	return int(h.attempts.Load())
}

// IsConnected is always true; each send opens its own request.
func (h *HTTP) IsConnected() bool {
	return true
}

// Send makes up to RetryAttempts+1 tries. Unreachable hosts and 401
// responses end the loop at once; other failures wait BackoffBase*2^attempt.
func (h *HTTP) Send(ctx context.Context, entry core.Entry) bool {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := h.encode(buf, entry); err != nil {
		h.logger.Errorf("encoding entry: %v", err)
		return false
	}

	total := h.opts.RetryAttempts + 1
	for attempt := 0; attempt < total; attempt++ {
		h.attempts.Add(1)
		err := h.post(ctx, buf.B)
		if err == nil {
			return true
		}

		switch {
		case errors.Is(err, errUnauthorized):
			h.logger.Errorf("%v: check the auth token", err)
			return false
		case ctx.Err() != nil:
			h.logger.Warnf("send canceled: %v", ctx.Err())
			return false
		case isUnreachable(err):
			h.logger.Errorf("network error, not retrying: %v", err)
			return false
		}

		if attempt == total-1 {
			h.logger.Errorf("giving up after %d attempts: %v", total, err)
			break
		}
		delay := backoff(h.opts.BackoffBase, attempt)
		h.logger.Warnf("attempt %d/%d failed: %v (retrying in %s)", attempt+1, total, err, delay)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}
	return false
}

func (h *HTTP) encode(buf *bytebufferpool.ByteBuffer, entry core.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if !h.opts.Compress {
		_, err = buf.Write(data)
		return err
	}
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		return err
	}
	return zw.Close()
}

func (h *HTTP) post(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if h.opts.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}
	if h.opts.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.opts.AuthToken)
	}

	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w (HTTP %d)", errUnauthorized, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// isUnreachable reports errors meaning the host cannot be reached at all.
// Timeouts are not among them; they are retried.
func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}
