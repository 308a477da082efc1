package bridge

import (
	"sync"
	"time"
)

// SubscriberID uniquely identifies an EventBus subscriber.
type SubscriberID uint64

// SubscriberFunc is a callback invoked when an event is emitted.
type SubscriberFunc func(Event)

type subscriber struct {
	fn    SubscriberFunc
	types []EventType // empty means every type
}

func (s subscriber) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	for _, want := range s.types {
		if want == t {
			return true
		}
	}
	return false
}

// EventBus provides synchronous, typed event dispatch. Subscribers run on
// the emitting goroutine in subscription order.
type EventBus struct {
	mu     sync.RWMutex
	nextID SubscriberID
	order  []SubscriberID
	subs   map[SubscriberID]subscriber
}

// NewEventBus creates a new EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[SubscriberID]subscriber)}
}

// Subscribe registers a callback for all event types.
func (eb *EventBus) Subscribe(fn SubscriberFunc) SubscriberID {
	return eb.add(subscriber{fn: fn})
}

// SubscribeTypes registers a callback only for the given event types.
func (eb *EventBus) SubscribeTypes(fn SubscriberFunc, types ...EventType) SubscriberID {
	return eb.add(subscriber{fn: fn, types: types})
}

func (eb *EventBus) add(s subscriber) SubscriberID {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.nextID++
	id := eb.nextID
	eb.subs[id] = s
	eb.order = append(eb.order, id)
	return id
}

// Unsubscribe removes a subscriber by ID.
func (eb *EventBus) Unsubscribe(id SubscriberID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if _, ok := eb.subs[id]; !ok {
		return
	}
	delete(eb.subs, id)
	for i, other := range eb.order {
		if other == id {
			eb.order = append(eb.order[:i], eb.order[i+1:]...)
			return
		}
	}
}

// Emit dispatches an event synchronously to all matching subscribers. The
// subscriber set is captured before any callback runs, so a callback that
// subscribes or unsubscribes takes effect from the next Emit.
func (eb *EventBus) Emit(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	eb.mu.RLock()
	fns := make([]SubscriberFunc, 0, len(eb.order))
	for _, id := range eb.order {
		if s := eb.subs[id]; s.wants(evt.Type) {
			fns = append(fns, s.fn)
		}
	}
	eb.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
