package tracekit

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/tracekit/pkg/collector"
	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/render"
	"github.com/rubiojr/tracekit/pkg/transport"
)

func newTestLogger(t *testing.T, opts ...Option) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	base := []Option{WithOutput(buf), WithColors(false), WithTimestamp(false)}
	l, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		l.Flush()
		_ = l.Close()
	})
	return l, buf
}

func memoryOf(t *testing.T, l *Logger) *transport.Memory {
	t.Helper()
	m, ok := l.Transport().(*transport.Memory)
	require.True(t, ok, "expected memory transport, got %T", l.Transport())
	return m
}

func remoteLevels(entries []core.Entry) []core.Level {
	levels := make([]core.Level, 0, len(entries))
	for _, e := range entries {
		levels = append(levels, e.Level)
	}
	return levels
}

func TestMinLevelFiltering(t *testing.T) {
	tests := []struct {
		min     core.Level
		printed []core.Level
	}{
		{core.LevelWarn, []core.Level{core.LevelWarn, core.LevelError, core.LevelFatal}},
		{core.LevelTrace, []core.Level{core.LevelTrace, core.LevelInfo, core.LevelSuccess, core.LevelWarn, core.LevelError, core.LevelFatal}},
		{core.LevelDebug, core.Levels()},
	}

	for _, tt := range tests {
		t.Run(tt.min.String(), func(t *testing.T) {
			l, buf := newTestLogger(t, WithMinLevel(tt.min))
			for _, level := range core.Levels() {
				buf.Reset()
				l.Log(level, "msg-"+level.String())
				printed := strings.Contains(buf.String(), "msg-"+level.String())
				assert.Equal(t, contains(tt.printed, level), printed, "level %s", level)
			}
		})
	}
}

func contains(levels []core.Level, l core.Level) bool {
	for _, v := range levels {
		if v == l {
			return true
		}
	}
	return false
}

func TestRemoteEligibility(t *testing.T) {
	l, _ := newTestLogger(t,
		WithRemote(true),
		WithTransportType(transport.KindMemory),
		WithRemoteMinLevel(core.LevelDebug),
	)

	l.Debug("d")
	l.Trace("t")
	l.Info("i")
	l.Success("s")
	l.Warn("w")
	l.Error("e")
	l.Fatal("f")
	l.Flush()

	got := remoteLevels(memoryOf(t, l).Logs())
	assert.ElementsMatch(t, []core.Level{core.LevelInfo, core.LevelWarn, core.LevelError, core.LevelFatal}, got)
}

func TestRemoteMinLevelAndSkip(t *testing.T) {
	l, buf := newTestLogger(t,
		WithRemote(true),
		WithTransportType(transport.KindMemory),
		WithRemoteMinLevel(core.LevelError),
	)

	l.Info("local only")
	l.Warn("local only")
	l.Error("remote")
	l.Fatal("skipped", SkipRemote())
	l.Flush()

	logs := memoryOf(t, l).Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "remote", logs[0].Message)
	assert.Equal(t, core.DefaultNamespace, logs[0].Namespace)
	assert.Contains(t, buf.String(), "skipped")
}

func TestRemoteDisabledSendsNothing(t *testing.T) {
	l, _ := newTestLogger(t, WithTransportType(transport.KindMemory))
	assert.Nil(t, l.Transport())
	assert.False(t, l.IsConnected())
	l.Error("nowhere")
}

func TestConfigureMerges(t *testing.T) {
	l, _ := newTestLogger(t, WithDefaultPadding(4), WithMinLevel(core.LevelInfo))
	before := l.Config()

	require.NoError(t, l.Configure(WithNamespace("X")))
	after := l.Config()

	assert.Equal(t, "X", after.Namespace)
	after.Namespace = before.Namespace
	assert.Equal(t, before, after)
}

func TestConfigReturnsCopy(t *testing.T) {
	l, _ := newTestLogger(t, WithNamespace("API"))
	c := l.Config()
	c.Namespace = "mutated"
	c.DefaultPadding = 99
	assert.Equal(t, "API", l.Config().Namespace)
	assert.Equal(t, 1, l.Config().DefaultPadding)
}

func TestConfigureRebuildsTransport(t *testing.T) {
	l, _ := newTestLogger(t, WithRemote(true), WithTransportType(transport.KindMemory))
	first := l.Transport()
	require.NotNil(t, first)

	require.NoError(t, l.Configure(WithDefaultPadding(3), WithNamespace("other")))
	assert.Same(t, first, l.Transport())

	require.NoError(t, l.Configure(WithAuthToken("rotated")))
	second := l.Transport()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)

	require.NoError(t, l.Configure(WithRemote(false)))
	assert.Nil(t, l.Transport())
}

func TestConfigureClosesOldSocket(t *testing.T) {
	l, _ := newTestLogger(t,
		WithRemote(true),
		WithTransportType(transport.KindWebSocket),
		WithSocketURL("ws://127.0.0.1:1/api/logs"),
		WithMaxReconnectAttempts(4),
	)
	old, ok := l.Transport().(*transport.Socket)
	require.True(t, ok)
	assert.Equal(t, 0, old.ReconnectAttempts())

	require.NoError(t, l.Configure(WithAuthToken("new-token")))
	assert.Equal(t, 4, old.ReconnectAttempts())
	assert.NotSame(t, old, l.Transport())

	require.NoError(t, l.Configure(WithSocketURL("ws://127.0.0.1:2/api/logs")))
	assert.NotSame(t, old, l.Transport())
}

func TestConfigureRejectsInvalid(t *testing.T) {
	l, _ := newTestLogger(t, WithNamespace("keep"))

	tests := []struct {
		name string
		opt  Option
	}{
		{"negative padding", WithDefaultPadding(-1)},
		{"zero timeout", WithTimeout(0)},
		{"negative retries", WithRetryAttempts(-2)},
		{"bad level", WithMinLevel(core.Level(42))},
		{"bad border", WithDefaultBorderStyle(render.BorderStyle(9))},
		{"bad transport", WithTransportType(transport.Kind(9))},
		{"nil output", WithOutput(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Configure(WithNamespace("changed"), tt.opt)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Equal(t, "keep", l.Config().Namespace)
		})
	}

	_, err := New(WithRemote(true), WithHTTPURL("not a url"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, "System", cfg.Namespace)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 5, cfg.WSMaxReconnectAttempts)
	assert.True(t, cfg.FallbackToHTTP)
	assert.Equal(t, core.LevelDebug, cfg.MinLevel)
	assert.Equal(t, core.LevelInfo, cfg.RemoteMinLevel)
	assert.Equal(t, transport.KindHTTP, cfg.TransportType)
	assert.Equal(t, render.BorderRounded, cfg.DefaultBorderStyle)
}

func TestSimpleOutput(t *testing.T) {
	l, buf := newTestLogger(t, WithNamespace("API"))
	l.Info("ready", WithMetadata(map[string]any{"port": 8080}), WithMetadata(map[string]any{"tls": true}))

	out := buf.String()
	assert.Contains(t, out, "INFO    [API] ready")
	assert.Contains(t, out, `"port": 8080`)
	assert.Contains(t, out, `"tls": true`)
	assert.Equal(t, 1, strings.Count(out, "INFO"))
}

func TestInNamespace(t *testing.T) {
	l, buf := newTestLogger(t, WithNamespace("API"), WithRemote(true), WithTransportType(transport.KindMemory))
	l.Info("from worker", InNamespace("worker"))
	l.Flush()

	assert.Contains(t, buf.String(), "[worker] from worker")
	assert.Len(t, memoryOf(t, l).LogsByNamespace("worker"), 1)
	assert.Equal(t, "API", l.Config().Namespace)
}

func TestBoxedOutput(t *testing.T) {
	l, buf := newTestLogger(t, WithNamespace("API"))
	l.Warn("disk almost full", Boxed(true), WithBorderStyle(render.BorderASCII), WithPadding(2))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.True(t, strings.HasPrefix(lines[0], "+-"), lines[0])
	assert.Contains(t, lines[0], " WARN - API ")
	assert.Equal(t, "|  📝 disk almost full", lines[1][:len("|  📝 disk almost full")])
	for _, line := range lines {
		assert.Equal(t, boxMinWidth+2*2+2, lipgloss.Width(line), line)
	}
}

func TestCallOptionsOverrideDefaults(t *testing.T) {
	l, buf := newTestLogger(t, WithDefaultBoxed(true), WithDefaultBorderStyle(render.BorderMinimal))

	l.Info("boxed by default", WithTitle("CUSTOM"))
	assert.Contains(t, buf.String(), "=== CUSTOM ===")

	buf.Reset()
	l.Info("single line", Boxed(false))
	assert.NotContains(t, buf.String(), "===")
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
}

func TestFlushWhileLogging(t *testing.T) {
	l, _ := newTestLogger(t, WithRemote(true), WithTransportType(transport.KindMemory))

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				l.Info("busy")
			}
		}()
	}
	for range 20 {
		l.Flush()
	}
	wg.Wait()
	l.Flush()

	assert.Equal(t, 200, memoryOf(t, l).Count())
}

func TestPendingWait(t *testing.T) {
	var p pending
	p.wait()

	p.add()
	p.add()
	released := make(chan struct{})
	go func() {
		p.wait()
		close(released)
	}()

	p.done()
	select {
	case <-released:
		t.Fatal("wait returned with a send still pending")
	case <-time.After(20 * time.Millisecond):
	}
	p.done()
	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not return")
	}
}

func TestErrorHandlerReceivesFailures(t *testing.T) {
	var (
		mu   sync.Mutex
		errs []error
	)
	l, buf := newTestLogger(t,
		WithRemote(true),
		WithTransportType(transport.KindMemory),
		WithErrorHandler(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}),
	)
	memoryOf(t, l).SetShouldFail(true)

	l.Error("lost")
	l.Flush()

	assert.Contains(t, buf.String(), "lost")
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, errs, 1)
	assert.True(t, errors.Is(errs[0], ErrRemoteSend))
}

func TestCloseIsIdempotent(t *testing.T) {
	l, buf := newTestLogger(t, WithRemote(true), WithTransportType(transport.KindMemory))
	assert.True(t, l.IsConnected())

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.False(t, l.IsConnected())
	assert.Nil(t, l.Transport())

	l.Info("still prints")
	assert.Contains(t, buf.String(), "still prints")
}

func TestRemoteOverHTTP(t *testing.T) {
	c := collector.New(collector.Options{AuthToken: "tok"})
	ts := httptest.NewServer(c)
	defer ts.Close()

	l, _ := newTestLogger(t,
		WithNamespace("billing"),
		WithRemote(true),
		WithHTTPURL(ts.URL+"/api/logs"),
		WithAuthToken("tok"),
		WithCompression(true),
	)
	l.Warn("card declined", WithMetadata(map[string]any{"order": "A-1"}))
	l.Flush()

	require.Equal(t, 1, c.Count())
	got := c.Recent()[0].Entry
	assert.Equal(t, core.LevelWarn, got.Level)
	assert.Equal(t, "billing", got.Namespace)
	assert.Equal(t, "A-1", got.Metadata["order"])
}

func TestRemoteOverWebSocket(t *testing.T) {
	c := collector.New(collector.Options{AuthToken: "tok"})
	ts := httptest.NewServer(c)
	defer ts.Close()

	l, _ := newTestLogger(t,
		WithRemote(true),
		WithTransportType(transport.KindWebSocket),
		WithSocketURL("ws"+strings.TrimPrefix(ts.URL, "http")+"/api/logs"),
		WithHTTPURL(ts.URL+"/api/logs"),
		WithAuthToken("tok"),
	)
	l.Info("over the socket")
	l.Flush()

	assert.True(t, l.IsConnected())
	require.Eventually(t, func() bool { return c.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "websocket", c.Recent()[0].Via)
}
