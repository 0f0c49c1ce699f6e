// Package watch fans state snapshots out to live subscribers.
package watch

import (
	"sync"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

// Hub delivers the latest snapshot to each subscriber. A slow subscriber never blocks
// Publish; it simply skips intermediate snapshots. Snapshots older than the newest
// one published are dropped, so a late publisher cannot roll a feed back.
type Hub struct {
	mu       sync.Mutex
	subs     map[uint64]chan entity.ServerState
	nextID   uint64
	closed   bool
	revision uint64
}

// NewHub -.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]chan entity.ServerState),
	}
}

// Subscribe registers a subscriber. The returned cancel func is safe to call more than once.
func (h *Hub) Subscribe() (<-chan entity.ServerState, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan entity.ServerState, 1)

	if h.closed {
		close(ch)

		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

// Publish replaces whatever snapshot each subscriber has not read yet.
func (h *Hub) Publish(snapshot entity.ServerState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if snapshot.Revision < h.revision {
		return
	}

	h.revision = snapshot.Revision

	for _, ch := range h.subs {
		select {
		case ch <- snapshot:
			continue
		default:
		}

		// drop the stale snapshot, then retry once
		select {
		case <-ch:
		default:
		}

		select {
		case ch <- snapshot:
		default:
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.subs)
}

// Close ends every subscription. Later subscribers receive a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
