// Package eventbus provides the in-process publish/subscribe bus carrying
// dispatch engine events between the core services and optional observers.
package eventbus

import "sync"

// Event is any value published on the bus; see core/events for the types the
// engine emits.
type Event any

// EventBus fans events out to subscribers. Delivery is best-effort and
// non-blocking: a slow subscriber drops events rather than stalling a
// dispatch or transition.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

type bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	closed bool
}

// New creates an EventBus.
func New() EventBus { return &bus{} }

func (b *bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *bus) Subscribe() <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

func (b *bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

func (b *bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
