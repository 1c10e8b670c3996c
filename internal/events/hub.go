package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/vaultsync/internal/clock"
	"github.com/alfredjeanlab/vaultsync/internal/idgen"
	"github.com/alfredjeanlab/vaultsync/internal/model"
)

const (
	// DefaultSubscriberBuffer is the per-subscriber queue length. A subscriber
	// that falls this far behind is pruned on the next publish.
	DefaultSubscriberBuffer = 64

	// DefaultKeepaliveInterval keeps proxies from idling out open streams.
	DefaultKeepaliveInterval = 15 * time.Second
)

// Subscriber is one open server-to-client channel. It is owned by the Hub
// from Subscribe until Unsubscribe.
type Subscriber struct {
	id   string
	ch   chan model.Event
	done chan struct{}
	once sync.Once
}

// ID returns the subscriber's log tag.
func (s *Subscriber) ID() string { return s.id }

// Events delivers published events in publish order.
func (s *Subscriber) Events() <-chan model.Event { return s.ch }

// Done is closed once the subscriber has been removed from the hub, either
// by Unsubscribe or by pruning after a failed delivery.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) close() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the in-process connection registry. It fans each published event
// out to every registered subscriber. Safe for concurrent use.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscriber]struct{}
	closed bool
	buffer int
	clock  clock.Clock
	logger *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithBuffer sets the per-subscriber queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithClock sets the clock that drives the keepalive loop.
func WithClock(c clock.Clock) HubOption {
	return func(h *Hub) { h.clock = c }
}

// WithLogger sets the hub's logger.
func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) { h.logger = l }
}

// NewHub returns an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		subs:   make(map[*Subscriber]struct{}),
		buffer: DefaultSubscriberBuffer,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new subscriber and returns it. Call Unsubscribe when
// done. After Close the subscriber comes back already done and is never
// registered.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		id:   idgen.NewSubscriberID(),
		ch:   make(chan model.Event, h.buffer),
		done: make(chan struct{}),
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.close()
		return s
	}
	h.subs[s] = struct{}{}
	n := len(h.subs)
	h.mu.Unlock()
	h.logger.Debug("hub: subscriber added", "subscriber", s.id, "subscribers", n)
	return s
}

// Unsubscribe removes s from the hub. It is safe to call more than once.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	_, ok := h.subs[s]
	delete(h.subs, s)
	n := len(h.subs)
	h.mu.Unlock()
	s.close()
	if ok {
		h.logger.Debug("hub: subscriber removed", "subscriber", s.id, "subscribers", n)
	}
}

// Publish delivers evt to the subscribers registered when the call starts
// and returns how many accepted it. It never blocks: a subscriber whose
// queue is full or which is already closed is pruned, and the failure goes
// no further than a debug log.
func (h *Hub) Publish(evt model.Event) int {
	h.mu.RLock()
	snapshot := make([]*Subscriber, 0, len(h.subs))
	for s := range h.subs {
		snapshot = append(snapshot, s)
	}
	h.mu.RUnlock()

	delivered := 0
	var dead []*Subscriber
	for _, s := range snapshot {
		select {
		case <-s.done:
			dead = append(dead, s)
			continue
		default:
		}
		select {
		case s.ch <- evt:
			delivered++
		default:
			dead = append(dead, s)
		}
	}

	for _, s := range dead {
		h.logger.Debug("hub: delivery dropped, pruning subscriber", "subscriber", s.id, "type", evt.Type)
		h.Unsubscribe(s)
	}
	return delivered
}

// Len returns the number of registered subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes every subscriber, which ends their streams, and refuses
// new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[*Subscriber]struct{})
	h.mu.Unlock()
	for s := range subs {
		s.close()
	}
}

// RunKeepalive publishes a ping every interval until ctx is done.
func (h *Hub) RunKeepalive(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()

	ping := model.Event{Type: model.EventPing, Payload: []byte(`{}`)}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			h.Publish(ping)
		}
	}
}
