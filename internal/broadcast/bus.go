// Package broadcast implements the cross-instance change notification
// contract: when one store saves or deletes a plan, every other subscriber
// learns the plan id and can refresh its list or reload its active document.
// Delivery is advisory, not locking; concurrent writers still resolve via
// last-persisted-wins at the storage layer.
package broadcast

import "sync"

// MessageType enumerates the notification kinds.
type MessageType string

// Notification kinds delivered to subscribers.
const (
	PlanUpdated MessageType = "plan-updated"
	PlanDeleted MessageType = "plan-deleted"
)

// Message tells subscribers that a plan changed elsewhere.
type Message struct {
	Type   MessageType `json:"type"`
	PlanID string      `json:"plan_id"`
}

// Broadcaster publishes plan change notifications.
type Broadcaster interface {
	Publish(Message)
}

// Bus fans messages out to in-process subscribers. Slow subscribers whose
// buffers are full miss messages rather than blocking publishers.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Message
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Message)}
}

// Subscribe registers a listener. The returned cancel function removes the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	ch := make(chan Message, 16)
	b.subs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

// Publish delivers the message to all current subscribers without blocking.
func (b *Bus) Publish(msg Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}
