package capture

import "sync"

// subscriberBuffer is the per-subscriber channel depth. A subscriber that
// falls this far behind loses events rather than stalling the capture path.
const subscriberBuffer = 64

// Hub fans finalized events out to subscribers. Delivery is best-effort and
// never blocks the producer; one misbehaving subscriber cannot affect other
// subscribers or the request path.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. It returns the channel events arrive
// on and an unsubscribe function; calling it removes the subscriber and
// closes the channel. Unsubscribe is idempotent.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			close(ch)
			h.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

// Publish delivers an event to every current subscriber, dropping it for
// subscribers whose buffers are full.
func (h *Hub) Publish(e Event) {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			// Drop if subscriber is slow
		}
	}
	h.mu.Unlock()
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	n := len(h.subs)
	h.mu.Unlock()
	return n
}
