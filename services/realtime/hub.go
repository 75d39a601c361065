package realtime

import (
	"log"
	"sync"
)

// subscriberBuffer is the per-connection event queue depth. A full buffer
// means the event is dropped for that connection; the persisted notification
// list remains the source of truth.
const subscriberBuffer = 16

// Event is one message pushed to a user's logical channel
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub is the in-process connection registry for real-time pushes. Each user
// may hold several concurrent subscriptions (multiple tabs/devices); emits
// fan out to all of them. Created at process start, injected into whichever
// service needs to emit, and torn down at shutdown.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint]map[chan Event]struct{}
	closed      bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[uint]map[chan Event]struct{}),
	}
}

// Subscribe registers a new connection for the user and returns its event
// channel plus an unsubscribe func. The channel is closed on unsubscribe or
// hub shutdown.
func (h *Hub) Subscribe(userID uint) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	if h.subscribers[userID] == nil {
		h.subscribers[userID] = make(map[chan Event]struct{})
	}
	h.subscribers[userID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.subscribers[userID]; ok {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(h.subscribers, userID)
				}
			}
		})
	}

	return ch, unsubscribe
}

// Emit pushes an event to every live connection of each named user.
// Delivery is best-effort: connections with a full buffer are skipped.
func (h *Hub) Emit(userIDs []uint, event string, payload interface{}) {
	ev := Event{Name: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for _, userID := range userIDs {
		for ch := range h.subscribers[userID] {
			select {
			case ch <- ev:
			default:
				// Slow consumer; drop rather than block the emitter
			}
		}
	}
}

// ConnectedUsers returns how many users hold at least one live connection
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close tears down every live connection. Called once at shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, subs := range h.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(h.subscribers, userID)
	}
	log.Println("Realtime hub closed")
}
