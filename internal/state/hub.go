package state

import "sync"

// Hub fans out the latest value to subscribers. Publishing never blocks:
// a subscriber that has not drained its previous value only sees the newest.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[int]chan T
	next int
	last T
	has  bool
}

// Subscribe returns a channel that receives every published value, starting
// with the current one if any. Call cancel to stop receiving.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = map[int]chan T{}
	}
	id := h.next
	h.next++
	ch := make(chan T, 1)
	if h.has {
		ch <- h.last
	}
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish replaces the current value and notifies subscribers.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last, h.has = v, true
	for _, ch := range h.subs {
		select {
		case ch <- v:
			continue
		default:
		}
		// drop the stale value
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Latest returns the most recently published value.
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.has
}
