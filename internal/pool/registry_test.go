package pool

import (
	"encoding/json"
	"sync"
	"testing"
)

// frameRecorder is a controlSender that records control frames.
type frameRecorder struct {
	mu        sync.Mutex
	connected bool
	frames    []string // "type:event"
}

func (f *frameRecorder) send(frameType, event string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return false
	}
	f.frames = append(f.frames, frameType+":"+event)
	return true
}

func (f *frameRecorder) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.frames...)
}

func TestRegistry_SingleWireSubscription(t *testing.T) {
	rec := &frameRecorder{connected: true}
	r := newRegistry(rec.send)

	id1 := r.add("x", func(json.RawMessage) {})
	id2 := r.add("x", func(json.RawMessage) {})

	if id1 == id2 {
		t.Fatal("expected distinct subscriber ids")
	}

	frames := rec.sent()
	if len(frames) != 1 || frames[0] != "subscribe:x" {
		t.Errorf("frames = %v, want exactly one subscribe:x", frames)
	}
}

func TestRegistry_UnsubscribeKeepsWireUntilEmpty(t *testing.T) {
	rec := &frameRecorder{connected: true}
	r := newRegistry(rec.send)

	id1 := r.add("x", func(json.RawMessage) {})
	id2 := r.add("x", func(json.RawMessage) {})

	r.remove("x", id1)
	if frames := rec.sent(); len(frames) != 1 {
		t.Errorf("after partial unsubscribe frames = %v, wire subscription should survive", frames)
	}

	r.remove("x", id2)
	frames := rec.sent()
	if len(frames) != 2 || frames[1] != "unsubscribe:x" {
		t.Errorf("frames = %v, want trailing unsubscribe:x", frames)
	}
	if r.count() != 0 {
		t.Errorf("count = %d, want 0", r.count())
	}
}

func TestRegistry_RemoveWholeEvent(t *testing.T) {
	rec := &frameRecorder{connected: true}
	r := newRegistry(rec.send)

	r.add("x", func(json.RawMessage) {})
	r.add("x", func(json.RawMessage) {})

	r.remove("x", NilSubscriber)

	frames := rec.sent()
	if len(frames) != 2 || frames[1] != "unsubscribe:x" {
		t.Errorf("frames = %v, want subscribe then unsubscribe", frames)
	}
	if r.count() != 0 {
		t.Errorf("count = %d, want 0", r.count())
	}
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	rec := &frameRecorder{connected: true}
	r := newRegistry(rec.send)

	r.remove("missing", NilSubscriber)
	r.remove("missing", newSubscriberID())

	if frames := rec.sent(); len(frames) != 0 {
		t.Errorf("frames = %v, want none", frames)
	}
}

func TestRegistry_DispatchFanOut(t *testing.T) {
	rec := &frameRecorder{connected: true}
	r := newRegistry(rec.send)

	var mu sync.Mutex
	got := map[string]int{}
	handler := func(name string) Handler {
		return func(data json.RawMessage) {
			mu.Lock()
			got[name+":"+string(data)]++
			mu.Unlock()
		}
	}

	r.add("x", handler("a"))
	r.add("x", handler("b"))
	r.add("y", handler("c"))

	r.dispatch("x", json.RawMessage(`{"a":1}`), testLogger())

	mu.Lock()
	defer mu.Unlock()
	if got[`a:{"a":1}`] != 1 || got[`b:{"a":1}`] != 1 {
		t.Errorf("got = %v, want both x subscribers invoked exactly once", got)
	}
	if len(got) != 2 {
		t.Errorf("got = %v, y subscriber must not be invoked", got)
	}
}

func TestRegistry_DispatchIsolatesPanics(t *testing.T) {
	rec := &frameRecorder{connected: true}
	r := newRegistry(rec.send)

	delivered := 0
	r.add("x", func(json.RawMessage) { panic("handler bug") })
	r.add("x", func(json.RawMessage) { delivered++ })

	r.dispatch("x", json.RawMessage(`1`), testLogger())

	if delivered != 1 {
		t.Errorf("delivered = %d, one panicking handler must not block the others", delivered)
	}
}

func TestRegistry_ReplayAfterReconnect(t *testing.T) {
	rec := &frameRecorder{}
	r := newRegistry(rec.send)

	// Not connected: registration succeeds, no wire frame possible yet
	r.add("x", func(json.RawMessage) {})
	r.add("y", func(json.RawMessage) {})
	if frames := rec.sent(); len(frames) != 0 {
		t.Fatalf("frames = %v, want none while disconnected", frames)
	}

	rec.mu.Lock()
	rec.connected = true
	rec.mu.Unlock()

	r.replay()
	if frames := rec.sent(); len(frames) != 2 {
		t.Errorf("frames = %v, want one subscribe per event", frames)
	}

	// Replay again without a disconnect: no duplicates
	r.replay()
	if frames := rec.sent(); len(frames) != 2 {
		t.Errorf("frames = %v, replay must not duplicate wire subscriptions", frames)
	}

	// After a reconnect the wired set is reset and replay re-subscribes
	r.resetWired()
	r.replay()
	if frames := rec.sent(); len(frames) != 4 {
		t.Errorf("frames = %v, want re-subscribe of both events", frames)
	}
}
