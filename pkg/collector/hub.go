package collector

import (
	"sync"
	"time"

	"github.com/rubiojr/tracekit/pkg/core"
)

// Received is an entry as accepted by the collector.
type Received struct {
	ID         string     `json:"id"`
	ReceivedAt time.Time  `json:"received_at"`
	Via        string     `json:"via"` // "http" or "websocket"
	Entry      core.Entry `json:"entry"`
}

// Hub fans received entries out to subscribers. A subscriber whose buffer is
// full misses the entry; ingestion never blocks on a slow reader.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Received
	nextID      uint64
	bufSize     int
}

// NewHub returns a hub with the given per-subscriber buffer (default 32).
func NewHub(bufSize int) *Hub {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &Hub{
		subscribers: make(map[uint64]chan Received),
		bufSize:     bufSize,
	}
}

// Subscribe registers a subscriber. Callers must Unsubscribe to release it.
func (h *Hub) Subscribe() (uint64, <-chan Received) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	ch := make(chan Received, h.bufSize)
	h.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown ids are
// ignored.
func (h *Hub) Unsubscribe(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subscribers[id]; ok {
		delete(h.subscribers, id)
		close(ch)
	}
}

func (h *Hub) Broadcast(r Received) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subscribers {
		select {
		case ch <- r:
		default:
		}
	}
}

func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ring keeps the most recent entries.
type ring struct {
	mu    sync.Mutex
	buf   []Received
	next  int
	full  bool
	total int
}

func newRing(size int) *ring {
	return &ring{buf: make([]Received, size)}
}

func (r *ring) add(v Received) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.total++
}

// items returns the buffered entries, oldest first.
func (r *ring) items() []Received {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		out := make([]Received, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]Received, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}

func (r *ring) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
