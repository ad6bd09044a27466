package integration_tests

import (
	"fmt"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rubiojr/tracekit/pkg/collector"
)

// StartCollector runs a collector behind an httptest server and returns the
// HTTP and WebSocket URLs of its ingest endpoint.
func StartCollector(t *testing.T, token string) (*collector.Server, string, string) {
	t.Helper()
	col := collector.New(collector.Options{AuthToken: token})
	srv := httptest.NewServer(col)
	t.Cleanup(srv.Close)

	httpURL := srv.URL + "/api/logs"
	return col, httpURL, "ws" + strings.TrimPrefix(httpURL, "http")
}

// WriteConfig writes a configuration file pointing both transports at the
// given endpoints.
func WriteConfig(t *testing.T, path, transport, httpURL, socketURL, token string) {
	t.Helper()
	if err := writeConfig(path, transport, httpURL, socketURL, token); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func writeConfig(path, transport, httpURL, socketURL, token string) error {
	content := fmt.Sprintf(`[general]
namespace = "integration"

[terminal]
colors = false
timestamp = false

[remote]
enabled = true
transport = %q
http_url = %q
socket_url = %q
auth_token = %q
timeout = "2s"
retry_attempts = 1
reconnect_delay = "50ms"
max_reconnect_attempts = 2
`, transport, httpURL, socketURL, token)
	return os.WriteFile(path, []byte(content), 0644)
}

// MessagesVia returns the messages the collector received over one transport.
func MessagesVia(col *collector.Server, via string) []string {
	var msgs []string
	for _, r := range col.Recent() {
		if r.Via == via {
			msgs = append(msgs, r.Entry.Message)
		}
	}
	return msgs
}
