// Package api provides HTTP API server functionality.
package api

import (
	"log/slog"
	"sync"
)

const (
	defaultStatusBuffer  = 16
	defaultPublishBuffer = 64
)

// SSE event names.
const (
	// MessageStatus carries action narrations and sync status.
	MessageStatus = "status"
	// MessageSnapshot announces that the shared snapshot changed.
	MessageSnapshot = "snapshot"
)

// Message is one SSE event. Data is marshaled to JSON on write.
type Message struct {
	Event string
	Data  any
}

// Subscriber is one stream client. Status messages queue in a bounded
// buffer and are dropped when it is full. Snapshot messages go to a
// single slot where a newer one replaces one not yet read, so a slow
// client skips intermediate snapshots but always ends on the latest.
type Subscriber struct {
	status    chan *Message
	snapshots chan *Message
	done      chan struct{}
}

// Status returns the status message channel.
func (s *Subscriber) Status() <-chan *Message { return s.status }

// Snapshots returns the latest-snapshot channel.
func (s *Subscriber) Snapshots() <-chan *Message { return s.snapshots }

// Done is closed when the subscriber is removed.
func (s *Subscriber) Done() <-chan struct{} { return s.done }

// deliver is only called from the hub goroutine.
func (s *Subscriber) deliver(m *Message) bool {
	if m.Event == MessageSnapshot {
		select {
		case <-s.snapshots:
		default:
		}
		s.snapshots <- m
		return true
	}
	select {
	case s.status <- m:
		return true
	default:
		return false
	}
}

func (s *Subscriber) close() {
	close(s.done)
	close(s.status)
	close(s.snapshots)
}

// Hub fans published messages out to subscribers. The subscriber set is
// owned by the Run goroutine.
type Hub struct {
	register   chan *Subscriber
	unregister chan *Subscriber
	publish    chan *Message
	stop       chan struct{}
	stopped    chan struct{}
	stopOnce   sync.Once

	statusBuffer int
	logger       *slog.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithHubStatusBuffer sets how many status messages a subscriber may lag.
func WithHubStatusBuffer(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.statusBuffer = size
		}
	}
}

// WithHubLogger sets the logger.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHub creates a hub. Start it with go hub.Run().
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		register:     make(chan *Subscriber),
		unregister:   make(chan *Subscriber),
		publish:      make(chan *Message, defaultPublishBuffer),
		stop:         make(chan struct{}),
		stopped:      make(chan struct{}),
		statusBuffer: defaultStatusBuffer,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run is the hub loop. It returns after Stop.
func (h *Hub) Run() {
	subs := make(map[*Subscriber]struct{})
	defer close(h.stopped)

	for {
		select {
		case sub := <-h.register:
			subs[sub] = struct{}{}
			h.logger.Debug("stream subscriber added", "count", len(subs))

		case sub := <-h.unregister:
			if _, ok := subs[sub]; ok {
				delete(subs, sub)
				sub.close()
				h.logger.Debug("stream subscriber removed", "count", len(subs))
			}

		case m := <-h.publish:
			dropped := 0
			for sub := range subs {
				if !sub.deliver(m) {
					dropped++
				}
			}
			if dropped > 0 {
				h.logger.Warn("status message dropped for slow subscribers", "subscribers", dropped)
			}

		case <-h.stop:
			for sub := range subs {
				sub.close()
			}
			return
		}
	}
}

// Stop ends Run and closes every subscriber. It blocks until Run has
// returned and may be called more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.stopped
}

// Subscribe adds a subscriber. Callers must Unsubscribe it. After Stop
// the returned subscriber is already closed.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{
		status:    make(chan *Message, h.statusBuffer),
		snapshots: make(chan *Message, 1),
		done:      make(chan struct{}),
	}
	select {
	case h.register <- sub:
	case <-h.stopped:
		sub.close()
	}
	return sub
}

// Unsubscribe removes sub. Nil and already removed subscribers are ignored.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	if sub == nil {
		return
	}
	select {
	case h.unregister <- sub:
	case <-h.stopped:
	}
}

// Publish queues m for every subscriber without blocking. When the queue
// is full the message is dropped.
func (h *Hub) Publish(m *Message) {
	if m == nil {
		return
	}
	select {
	case h.publish <- m:
	case <-h.stopped:
	default:
		h.logger.Warn("hub queue full, message dropped", "event", m.Event)
	}
}

// PublishStatus broadcasts an action narration or other status notice.
func (h *Hub) PublishStatus(data any) {
	h.Publish(&Message{Event: MessageStatus, Data: data})
}

// PublishSnapshot broadcasts a snapshot change.
func (h *Hub) PublishSnapshot(data any) {
	h.Publish(&Message{Event: MessageSnapshot, Data: data})
}
