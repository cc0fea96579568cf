// Package dispatch is the boundary between the synchronization engine and the
// rendering layer: the engine publishes discrete state-transition events, the
// UI subscribes. The engine never calls into rendering directly.
package dispatch

import (
	"sync"
	"time"
)

// Event type constants follow the format: domain.action
const (
	EventMessageMerged      = "message.merged"
	EventMessageResolved    = "message.resolved"
	EventBadgeIncremented   = "badge.incremented"
	EventInteractionChanged = "interaction.changed"
	EventSessionUpserted    = "session.upserted"
	EventSessionResurfaced  = "session.resurfaced"
	EventPresenceChanged    = "presence.changed"
	EventTransferPrompt     = "transfer.prompt"
	EventTransferRejected   = "transfer.rejected"
	EventFocusChanged       = "focus.changed"
)

type Event struct {
	Type       string
	UserID     int64
	Payload    interface{}
	OccurredAt time.Time
}

// Bus fans events out to subscriber channels. Publishing never blocks; a
// subscriber that cannot keep up loses events, same as a slow websocket
// client would.
type Bus struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe returns a receive channel and a cancel func. Buffer sizes the
// channel; 0 means a default of 256.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 256
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber, non-blocking.
func (b *Bus) Publish(eventType string, userID int64, payload interface{}) {
	e := Event{Type: eventType, UserID: userID, Payload: payload, OccurredAt: time.Now()}
	b.mu.RLock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber full, event dropped
		}
	}
	b.mu.RUnlock()
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
