package transport

import (
	"context"
	"slices"
	"sync"

	"github.com/rubiojr/tracekit/pkg/core"
	"github.com/rubiojr/tracekit/pkg/log"
)

// Memory records entries in order. It is the test double for the remote
// transports.
type Memory struct {
	mu         sync.RWMutex
	logs       []core.Entry
	shouldFail bool
	logger     *log.Logger
}

func NewMemory() *Memory {
	return &Memory{logger: log.ForService("transport:memory")}
}

// Send appends a copy of entry, or returns false without recording when the
// transport is set to fail.
func (m *Memory) Send(_ context.Context, entry core.Entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		m.logger.Debugf("rejecting %s entry: failure mode set", entry.Level)
		return false
	}
	m.logs = append(m.logs, entry.Clone())
	return true
}

// Logs returns every recorded entry in insertion order.
func (m *Memory) Logs() []core.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.logs)
}

func (m *Memory) LogsByLevel(level core.Level) []core.Entry {
	return m.filter(func(e core.Entry) bool { return e.Level == level })
}

func (m *Memory) LogsByNamespace(namespace string) []core.Entry {
	return m.filter(func(e core.Entry) bool { return e.Namespace == namespace })
}

func (m *Memory) filter(keep func(core.Entry) bool) []core.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Entry
	for _, e := range m.logs {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs)
}

func (m *Memory) Clear() {
	m.mu.Lock()
	m.logs = nil
	m.mu.Unlock()
}

func (m *Memory) SetShouldFail(fail bool) {
	m.mu.Lock()
	m.shouldFail = fail
	m.mu.Unlock()
}

// IsConnected is false while the transport is set to fail.
func (m *Memory) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.shouldFail
}
