package pool

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// controlSender issues a wire-level subscribe or unsubscribe for an event.
// It reports false when the frame could not be sent (typically because the
// connection is not established); the registry then relies on replay after
// the next successful connect.
type controlSender func(frameType, event string) bool

// registry maps remote event names to sets of local subscribers and owns the
// wire-level subscription transitions for one connection.
//
// Invariants, enforced by construction:
//   - a wire subscription exists only for events with a non-empty subscriber
//     set
//   - no event ever carries two wire subscriptions on the same socket
type registry struct {
	send controlSender

	mu     sync.Mutex
	events map[string]map[SubscriberID]Handler
	wired  map[string]bool // events subscribed on the live socket
}

func newRegistry(send controlSender) *registry {
	return &registry{
		send:   send,
		events: make(map[string]map[SubscriberID]Handler),
		wired:  make(map[string]bool),
	}
}

// add registers h for event and returns its subscriber identity. The first
// subscriber for an event triggers the single wire-level subscription;
// later subscribers attach to it.
func (r *registry) add(event string, h Handler) SubscriberID {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.events[event]
	if !ok {
		set = make(map[SubscriberID]Handler)
		r.events[event] = set
	}

	id := newSubscriberID()
	set[id] = h

	if !r.wired[event] && r.send(frameSubscribe, event) {
		r.wired[event] = true
	}
	return id
}

// remove drops one subscriber from event, or the whole set when id is
// NilSubscriber. Dropping the last subscriber releases the wire
// subscription. Removing an unknown event or id is a no-op.
func (r *registry) remove(event string, id SubscriberID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.events[event]
	if !ok {
		return
	}

	if id != NilSubscriber {
		if _, ok := set[id]; !ok {
			return
		}
		delete(set, id)
		if len(set) > 0 {
			return
		}
	}

	delete(r.events, event)
	if r.wired[event] {
		delete(r.wired, event)
		r.send(frameUnsubscribe, event)
	}
}

// dispatch delivers data to every subscriber of event, once each. Iteration
// order is unspecified. A panicking handler is isolated: it is logged and
// the remaining handlers still run.
func (r *registry) dispatch(event string, data json.RawMessage, logger *slog.Logger) {
	r.mu.Lock()
	set := r.events[event]
	handlers := make([]Handler, 0, len(set))
	for _, h := range set {
		handlers = append(handlers, h)
	}
	r.mu.Unlock()

	for _, h := range handlers {
		invoke(h, event, data, logger)
	}
}

func invoke(h Handler, event string, data json.RawMessage, logger *slog.Logger) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("subscriber panicked", "event", event, "panic", v)
		}
	}()
	h(data)
}

// replay re-issues wire subscriptions for every registered event. Called
// after each successful connect; the wired set was cleared on disconnect so
// each event is subscribed exactly once on the new socket.
func (r *registry) replay() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for event := range r.events {
		if !r.wired[event] && r.send(frameSubscribe, event) {
			r.wired[event] = true
		}
	}
}

// resetWired forgets the wire subscriptions of a lost socket.
func (r *registry) resetWired() {
	r.mu.Lock()
	r.wired = make(map[string]bool)
	r.mu.Unlock()
}

// count returns the number of registered subscribers across all events.
func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, set := range r.events {
		n += len(set)
	}
	return n
}
