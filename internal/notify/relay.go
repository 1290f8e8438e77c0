// Package notify fans out catalog change events to connected subscribers.
// Delivery is best-effort and at-most-once: publishing never blocks, slow
// subscribers lose events, and a failed delivery never affects the
// mutation that produced it.
package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Entities that emit change events.
const (
	EntityCategories = "categories"
	EntityFunkos     = "funkos"
)

// Change kinds.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

// Notification is one change event.
type Notification struct {
	Entity    string    `json:"entity"`
	Kind      string    `json:"kind"`
	Payload   any       `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// subscriberBuffer is the per-subscriber channel depth. Events beyond it
// are dropped for that subscriber.
const subscriberBuffer = 16

// Relay is the fan-out hub.
type Relay struct {
	mu   sync.Mutex
	subs map[int64]chan Notification
	next int64
}

// New creates an empty relay.
func New() *Relay {
	return &Relay{subs: make(map[int64]chan Notification)}
}

// Subscribe registers a new subscriber. The returned cancel func must be
// called when the subscriber goes away; it closes the channel.
func (r *Relay) Subscribe() (<-chan Notification, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.next
	r.next++
	ch := make(chan Notification, subscriberBuffer)
	r.subs[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish sends a change event to every subscriber without blocking.
func (r *Relay) Publish(entity, kind string, payload any) {
	n := Notification{
		Entity:    entity,
		Kind:      kind,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subs {
		select {
		case ch <- n:
		default:
			// Subscriber is not keeping up; drop.
		}
	}
	slog.Debug("notification published", "entity", entity, "kind", kind, "subscribers", len(r.subs))
}

// Subscribers returns the current subscriber count.
func (r *Relay) Subscribers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
