package table

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gridline/table-sync-service/internal/domain/event"
)

// Hub is the per-session broadcast channel. Producers publish under the
// hub mutex, so every subscriber observes events in the exact order writers
// completed their critical sections. Producers never block: a subscriber
// whose mailbox is full is cut loose instead, and its connection handler
// tears the connection down when the closed channel surfaces.
type Hub struct {
	mu       sync.Mutex
	subs     map[uuid.UUID]*Subscriber
	capacity int
	closed   bool
}

func newHub(capacity int) *Hub {
	return &Hub{
		subs:     make(map[uuid.UUID]*Subscriber),
		capacity: capacity,
	}
}

// Publish delivers ev to every current subscriber exactly once, subject to
// the lag-drop policy. Publishing with no subscribers is not an error.
func (h *Hub) Publish(ev event.Eventer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, s := range h.subs {
		select {
		case s.mailbox <- ev:
		default:
			// Lagging consumer. Closing the mailbox signals its outbound
			// pump to exit; the client reconciles by reconnecting and
			// re-reading the snapshot.
			s.close()
			delete(h.subs, id)
		}
	}
}

// Subscribe registers a new mailbox with the hub's bounded capacity.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		id:      uuid.New(),
		mailbox: make(chan event.Eventer, h.capacity),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		s.close()
		return s
	}
	h.subs[s.id] = s
	return s
}

// Unsubscribe detaches s and closes its mailbox. Safe to call after the hub
// already dropped the subscriber for lagging.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		s.close()
	}
}

func (h *Hub) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber. Used on process shutdown only; sessions are
// never evicted while the process runs.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, s := range h.subs {
		s.close()
		delete(h.subs, id)
	}
}

// Subscriber is one attached consumer of a session's event stream.
type Subscriber struct {
	id      uuid.UUID
	mailbox chan event.Eventer
	once    sync.Once
}

func (s *Subscriber) ID() uuid.UUID { return s.id }

// Recv returns the mailbox. The channel is closed when the subscriber is
// detached or dropped for lagging; receivers must treat closure as
// connection teardown.
func (s *Subscriber) Recv() <-chan event.Eventer { return s.mailbox }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.mailbox) })
}
