package tracekit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rubiojr/tracekit/pkg/transport"
)

func TestDefaultSingleton(t *testing.T) {
	require.NoError(t, ResetDefault())
	t.Cleanup(func() { _ = ResetDefault() })

	first := Default()
	assert.Same(t, first, Default())
	assert.Equal(t, DefaultConfig().Namespace, GetConfig().Namespace)

	require.NoError(t, ResetDefault())
	assert.NotSame(t, first, Default())
}

func TestPackageFunctionsUseDefault(t *testing.T) {
	t.Cleanup(func() { _ = ResetDefault() })

	buf := &bytes.Buffer{}
	l, err := New(WithOutput(buf), WithColors(false), WithRemote(true), WithTransportType(transport.KindMemory))
	require.NoError(t, err)
	SetDefault(l)

	Info("hello")
	Success("done")
	Trace("t")
	Flush()

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "done")
	assert.Equal(t, 1, l.Transport().(*transport.Memory).Count())
	assert.True(t, IsConnected())

	require.NoError(t, Configure(WithNamespace("pkg")))
	assert.Equal(t, "pkg", GetConfig().Namespace)

	require.NoError(t, Close())
	assert.False(t, IsConnected())
	assert.Same(t, l, Default())
}
