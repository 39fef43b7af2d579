package chatsync

import (
	"sync"

	"github.com/bizportal/portalchat/internal/logger"
	"github.com/bizportal/portalchat/internal/metrics"
	"github.com/bizportal/portalchat/internal/types"
)

// EventKind identifies what changed.
type EventKind string

const (
	// EventMessages: a room's message list changed.
	EventMessages EventKind = "messages"
	// EventRooms: the room list, active room or a badge changed.
	EventRooms EventKind = "rooms"
	// EventScrollToBottom: new messages arrived in the active room.
	EventScrollToBottom EventKind = "scroll_to_bottom"
	// EventNewMessage: a message from someone else arrived in a background,
	// unmuted room.
	EventNewMessage EventKind = "new_message"
	// EventSendFailed: a send was rejected and its optimistic entry removed.
	EventSendFailed EventKind = "send_failed"
)

// Event is published to subscribers after the engine state changed.
type Event struct {
	Kind    EventKind
	RoomID  string
	Message *types.Message
	// Older marks EventMessages caused by loading older history.
	Older bool
	Err   error
}

const defaultSubscriberBuffer = 64

// Subscription receives events until it is closed or the engine closes.
type Subscription struct {
	ch   chan Event
	hub  *hub
	once sync.Once
}

// Events returns the receive channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Close ends the subscription.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

type hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	log     *logger.Logger
	metrics *metrics.Sync
}

func newHub(log *logger.Logger, m *metrics.Sync) *hub {
	return &hub{
		subs:    make(map[*Subscription]struct{}),
		log:     log.With("component", "events"),
		metrics: m,
	}
}

func (h *hub) subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	sub := &Subscription{ch: make(chan Event, buffer), hub: h}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

func (h *hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.once.Do(func() { close(sub.ch) })
}

// publish never blocks; a full subscriber buffer drops the event.
func (h *hub) publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			h.metrics.DroppedEvent()
			h.log.Warn("dropping event; subscriber buffer full", "kind", ev.Kind, "room", ev.RoomID)
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for sub := range h.subs {
		delete(h.subs, sub)
		sub.once.Do(func() { close(sub.ch) })
	}
}
