package pool

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/rickgao/sockpool/internal/transport"
)

// Replays the run loop's teardown-then-reconnect sequence by hand, with a
// new subscriber landing mid-teardown. Every registered event must be
// re-wired on the next socket, whether it was subscribed before the loss or
// while the old socket was being torn down.
func TestRecord_SubscribeDuringTeardownRewiresOnReconnect(t *testing.T) {
	rec := newRecord(testKey, defaultSettings(), nil, testLogger(), func(*record) {}, nil)

	sock1 := newFakeSocket()
	if !rec.attach(sock1) {
		t.Fatal("attach failed")
	}
	rec.subs.add("x", func(json.RawMessage) {})
	if got := sock1.controlCount(transport.FrameSubscribe, "x"); got != 1 {
		t.Fatalf("subscribe frames on first socket = %d, want 1", got)
	}

	rec.detach(errors.New("connection reset"))

	// The socket is gone; this registration cannot wire until the next
	// connect.
	rec.subs.add("y", func(json.RawMessage) {})

	sock2 := newFakeSocket()
	if !rec.attach(sock2) {
		t.Fatal("reattach failed")
	}
	rec.subs.replay()

	if got := sock2.controlCount(transport.FrameSubscribe, "x"); got != 1 {
		t.Errorf("subscribe frames for x on new socket = %d, want 1", got)
	}
	if got := sock2.controlCount(transport.FrameSubscribe, "y"); got != 1 {
		t.Errorf("subscribe frames for y on new socket = %d, want 1", got)
	}

	rec.remove()
}
