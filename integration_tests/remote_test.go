package integration_tests

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/tracekit/pkg/config"
	"github.com/rubiojr/tracekit/pkg/tracekit"
	"github.com/rubiojr/tracekit/pkg/transport"
)

func newLoggerFromFile(t *testing.T, path string, extra ...tracekit.Option) *tracekit.Logger {
	t.Helper()
	f, err := config.Load(path)
	require.NoError(t, err)

	opts := append(f.Options(), tracekit.WithOutput(io.Discard))
	l, err := tracekit.New(append(opts, extra...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Flush()
		_ = l.Close()
	})
	return l
}

func TestConfigReloadSwitchesTransport(t *testing.T) {
	col, httpURL, socketURL := StartCollector(t, "s3cret")
	path := filepath.Join(t.TempDir(), "config.toml")
	WriteConfig(t, path, "websocket", httpURL, socketURL, "s3cret")

	l := newLoggerFromFile(t, path)
	socket, ok := l.Transport().(*transport.Socket)
	require.True(t, ok, "expected socket transport, got %T", l.Transport())

	l.Info("over socket")
	l.Flush()
	require.Eventually(t, func() bool {
		return len(MessagesVia(col, "websocket")) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, l.IsConnected())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() {
		watchDone <- config.Watch(ctx, path, func(f *config.File) {
			_ = l.Configure(f.Options()...)
		})
	}()

	require.Eventually(t, func() bool {
		_ = writeConfig(path, "http", httpURL, socketURL, "s3cret")
		_, isHTTP := l.Transport().(*transport.HTTP)
		return isHTTP
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, transport.StateDisconnected, socket.State())

	l.Warn("over http")
	l.Flush()
	assert.Equal(t, []string{"over http"}, MessagesVia(col, "http"))
	assert.Equal(t, []string{"over socket"}, MessagesVia(col, "websocket"))

	cancel()
	select {
	case err := <-watchDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestSocketFallsBackToHTTP(t *testing.T) {
	col, httpURL, _ := StartCollector(t, "")
	path := filepath.Join(t.TempDir(), "config.toml")
	WriteConfig(t, path, "websocket", httpURL, "ws://127.0.0.1:1/api/logs", "")

	l := newLoggerFromFile(t, path)
	l.Error("socket is down")
	l.Flush()

	assert.Equal(t, []string{"socket is down"}, MessagesVia(col, "http"))
	assert.False(t, l.IsConnected())
}

func TestRejectedTokenReachesErrorHandler(t *testing.T) {
	col, httpURL, socketURL := StartCollector(t, "s3cret")
	path := filepath.Join(t.TempDir(), "config.toml")
	WriteConfig(t, path, "http", httpURL, socketURL, "wrong")

	var (
		mu   sync.Mutex
		errs []error
	)
	l := newLoggerFromFile(t, path, tracekit.WithErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}))

	l.Error("denied")
	l.Success("local only")
	l.Flush()

	assert.Empty(t, col.Recent())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], tracekit.ErrRemoteSend))
}

func TestMissingConfigUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")
	l := newLoggerFromFile(t, path)
	assert.Nil(t, l.Transport())

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
