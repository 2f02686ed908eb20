// Package events implements the Event & Progress Bus (spec.md §4.9): a
// bounded-buffer, multi-producer/multi-consumer channel fan-out for
// ProgressEvent values.
package events

import (
	"sync"

	"github.com/google/uuid"
)

// Event is an immutable progress record. Callers must treat a received
// Event as read-only; the bus never mutates one after Publish.
type Event struct {
	RunID     string
	RepoKey   string
	Phase     string
	Status    string
	Detail    string
	Counts    map[string]int
	ElapsedMS int64
}

// Subscription is a bounded channel of Events plus the handle needed to
// unsubscribe.
type Subscription struct {
	C  <-chan Event
	id uint64
	bus *Bus
}

// Unsubscribe removes this subscription from the bus. It is idempotent:
// calling it more than once, or after the bus has been closed, is a
// no-op.
func (s *Subscription) Unsubscribe() {
	s.bus.remove(s.id)
}

// Bus fans out Events to every live subscriber. A slow subscriber never
// blocks a publish: when its buffer is full the event is dropped for
// that subscriber only (spec.md §4.9: "a bounded buffer per consumer;
// publishers never block on a slow consumer").
type Bus struct {
	mu       sync.Mutex
	nextID   uint64
	bufSize  int
	subs     map[uint64]chan Event
}

// NewBus creates a Bus whose per-subscriber channel buffer holds bufSize
// events before the bus starts dropping for that subscriber.
func NewBus(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 1
	}
	return &Bus{bufSize: bufSize, subs: make(map[uint64]chan Event)}
}

// Subscribe registers a new consumer and returns its Subscription.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.bufSize)
	b.subs[id] = ch
	return &Subscription{C: ch, id: id, bus: b}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers ev to every current subscriber, dropping it for any
// subscriber whose buffer is full rather than blocking.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// buffer full: drop for this subscriber, never block the publisher
		}
	}
}

// Close unsubscribes and closes every live subscriber channel. The bus
// must not be used after Close.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// NewRunID returns a fresh correlation id for one Resolve/Bulk/
// ChangePipeline invocation, shared across every Event it emits.
func NewRunID() string {
	return uuid.NewString()
}
