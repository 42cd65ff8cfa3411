package realtime

import "sync"

// Broadcaster fans values out to subscriber outboxes keyed by subscriber id.
// Sends never block: a subscriber whose outbox is full misses that value.
type Broadcaster[T any] struct {
	mu   sync.Mutex
	subs map[string]chan<- T
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{
		subs: make(map[string]chan<- T),
	}
}

// Subscribe registers an outbox owned by the caller. A second Subscribe with the
// same id replaces the previous outbox.
func (b *Broadcaster[T]) Subscribe(id string, outbox chan<- T) {
	b.mu.Lock()
	b.subs[id] = outbox
	b.mu.Unlock()
}

// Unsubscribe removes a subscriber. The outbox is not closed; it belongs to the subscriber.
func (b *Broadcaster[T]) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[id]; !ok {
		return false
	}
	delete(b.subs, id)
	return true
}

// Len returns the number of subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers v to every subscriber and returns how many were skipped
// because their outbox was full.
func (b *Broadcaster[T]) Publish(v T) (dropped int) {
	b.mu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- v:
		default:
			// Lagging subscriber; the next full snapshot catches it up.
			dropped++
		}
	}
	b.mu.Unlock()
	return dropped
}

// Send delivers v to a single subscriber. It reports false when the subscriber
// is unknown or its outbox is full.
func (b *Broadcaster[T]) Send(id string, v T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subs[id]
	if !ok {
		return false
	}
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
