// Package live fans out "results changed" signals to websocket watchers of a post.
package live

import (
	"sync"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/metrics"
)

type sub struct {
	ch chan struct{}
}

// Hub is process local. Signals coalesce: a slow watcher sees at most one
// pending wakeup and re-reads the latest results.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*sub]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*sub]struct{})}
}

// Subscribe registers a watcher for postID. The returned cancel func must be
// called once the watcher goes away.
func (h *Hub) Subscribe(postID string) (<-chan struct{}, func()) {
	s := &sub{ch: make(chan struct{}, 1)}

	h.mu.Lock()
	set, ok := h.subs[postID]
	if !ok {
		set = make(map[*sub]struct{})
		h.subs[postID] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	metrics.LiveSubscribers.Inc()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(set, s)
			if len(set) == 0 && h.subs[postID] != nil && len(h.subs[postID]) == 0 {
				delete(h.subs, postID)
			}
			h.mu.Unlock()
			metrics.LiveSubscribers.Dec()
		})
	}
}

// Publish wakes every watcher of postID without blocking.
func (h *Hub) Publish(postID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[postID] {
		select {
		case s.ch <- struct{}{}:
		default:
		}
	}
}

func (h *Hub) Count(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[postID])
}
