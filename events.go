package mgit

import "github.com/AeyeOps/mgit/internal/events"

// EventBus fans progress events out to every live subscriber without
// ever blocking a publisher on a slow consumer (spec.md §4.9).
type EventBus struct {
	inner *events.Bus
}

// NewEventBus creates a Bus whose per-subscriber channel buffer holds
// bufSize events before the bus starts dropping for that subscriber.
func NewEventBus(bufSize int) *EventBus {
	return &EventBus{inner: events.NewBus(bufSize)}
}

// EventSubscription is a bounded channel of ProgressEvent plus the
// handle needed to unsubscribe.
type EventSubscription struct {
	C <-chan ProgressEvent
	raw *events.Subscription
}

// Subscribe registers a new consumer.
func (b *EventBus) Subscribe() *EventSubscription {
	sub := b.inner.Subscribe()
	out := make(chan ProgressEvent, cap(sub.C))
	go func() {
		defer close(out)
		for ev := range sub.C {
			out <- ProgressEvent{
				RunID:     ev.RunID,
				RepoKey:   ev.RepoKey,
				Phase:     ProgressPhase(ev.Phase),
				Status:    ev.Status,
				Detail:    ev.Detail,
				Counts:    ev.Counts,
				ElapsedMS: ev.ElapsedMS,
			}
		}
	}()
	return &EventSubscription{C: out, raw: sub}
}

// Unsubscribe removes this subscription from the bus. Idempotent.
func (s *EventSubscription) Unsubscribe() { s.raw.Unsubscribe() }

// Publish delivers ev to every current subscriber.
func (b *EventBus) Publish(ev ProgressEvent) {
	b.inner.Publish(events.Event{
		RunID:     ev.RunID,
		RepoKey:   ev.RepoKey,
		Phase:     string(ev.Phase),
		Status:    ev.Status,
		Detail:    ev.Detail,
		Counts:    ev.Counts,
		ElapsedMS: ev.ElapsedMS,
	})
}

// Close unsubscribes and closes every live subscriber channel.
func (b *EventBus) Close() { b.inner.Close() }

// NewRunID returns a fresh correlation id for one Resolve/Bulk/
// ChangePipeline invocation.
func NewRunID() string { return events.NewRunID() }
