package transport

import (
	"fmt"
	"strings"
)

// New builds the transport for kind. For websocket transports with fallback
// enabled and no FallbackURL, the fallback endpoint is derived from url.
func New(kind Kind, url string, opts Options) (Transport, error) {
	switch kind {
	case KindHTTP:
		return NewHTTP(url, opts), nil
	case KindWebSocket:
		if opts.FallbackToHTTP && opts.FallbackURL == "" {
			opts.FallbackURL = FallbackURL(url)
		}
		return NewSocket(url, opts), nil
	case KindMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
}

// FallbackURL maps a websocket URL to the HTTP endpoint on the same host
// and path.
func FallbackURL(wsURL string) string {
	switch {
	case strings.HasPrefix(wsURL, "wss://"):
		return "https://" + strings.TrimPrefix(wsURL, "wss://")
	case strings.HasPrefix(wsURL, "ws://"):
		return "http://" + strings.TrimPrefix(wsURL, "ws://")
	}
	return wsURL
}
