// Package log is the diagnostic channel of tracekit.
//
// It is deliberately separate from the user-facing Logger in pkg/tracekit:
// the remote transports report their own failures (retries, reconnects,
// authentication rejections, fallbacks) here, so a broken collector never
// causes a log call to recurse into the transport that is failing.
//
// Every line carries the service prefix:
//
//	2025/01/02 15:04:05.000000 WARN [transport:http>] attempt 2/4 failed: HTTP 503
//
// Usage:
//
//	l := log.ForService("transport:websocket")
//	l.Warnf("reconnecting in %s (attempt %d/%d)", delay, n, max)
//	l.Debugf("frame sent: %d bytes", n) // only when debug is enabled
//
// Debug output is enabled globally with SetGlobalDebug or per service with
// EnableDebugFor. SetOutput redirects every logger (tests pass a
// bytes.Buffer), and Silence drops everything.
//
// All functions are safe for concurrent use.
package log
