package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/sockpool/internal/transport"
)

const (
	frameSubscribe   = transport.FrameSubscribe
	frameUnsubscribe = transport.FrameUnsubscribe
)

// record owns one endpoint's socket handle, lifecycle state, retry counter,
// and subscriber registry. All mutating transitions happen on the record's
// run goroutine, except the explicit remove.
type record struct {
	key     Key
	opts    settings
	dial    transport.DialFunc
	logger  *slog.Logger
	evict   func(*record)
	observe StateObserver // may be nil

	subs *registry

	// dialCtx is cancelled on remove so an in-flight dial cannot outlive
	// the record.
	dialCtx    context.Context
	dialCancel context.CancelFunc

	mu       sync.Mutex
	state    State
	attempts int
	lastErr  error
	sock     transport.Socket
	changed  chan struct{} // closed and replaced on every transition
	stop     chan struct{} // closed on remove
}

func newRecord(key Key, opts settings, dial transport.DialFunc, logger *slog.Logger, evict func(*record), observe StateObserver) *record {
	r := &record{
		key:     key,
		opts:    opts,
		dial:    dial,
		logger:  logger,
		evict:   evict,
		observe: observe,
		state:   StateConnecting,
		changed: make(chan struct{}),
		stop:    make(chan struct{}),
	}
	r.dialCtx, r.dialCancel = context.WithCancel(context.Background())
	r.subs = newRegistry(r.sendControl)
	return r
}

// run drives the record's lifecycle: dial, pump inbound frames, reconnect
// after loss, give up once the retry budget is exhausted.
func (r *record) run() {
	// The record is born Connecting; setConnecting only notifies on later
	// transitions back into the state.
	r.observeState(StateConnecting, nil)

	for {
		if !r.setConnecting() {
			return
		}

		sock, err := r.dialOnce()
		if err != nil {
			if r.removed() {
				return
			}
			if r.connectFailed(err) {
				r.fail(err)
				return
			}
			if !r.sleep(r.opts.reconnectDelay) {
				return
			}
			continue
		}

		if !r.attach(sock) {
			sock.Close()
			return
		}
		r.subs.replay()

		reason := r.pump(sock)
		if r.removed() {
			return
		}

		r.detach(reason)

		if !r.sleep(r.opts.reconnectDelay) {
			return
		}
	}
}

func (r *record) dialOnce() (transport.Socket, error) {
	// The dial is bounded by the transport's own handshake timeout, not the
	// caller's deadline: callers race the guard while the dial keeps going.
	return r.dial(r.dialCtx, r.key.Address(), transport.DialOptions{
		Headers: r.opts.headers,
		Params:  r.opts.params,
		Logger:  r.logger,
	})
}

// pump routes inbound frames to subscribers until the socket fails, closes,
// or the record is removed.
func (r *record) pump(sock transport.Socket) error {
	for {
		select {
		case <-r.stop:
			return nil
		case err := <-sock.Errors():
			return err
		case f, ok := <-sock.Frames():
			if !ok {
				select {
				case err := <-sock.Errors():
					return err
				default:
					return transport.ErrConnClosed
				}
			}
			if f.Type == transport.FrameEvent {
				r.subs.dispatch(f.Event, f.Data, r.logger)
			}
		}
	}
}

// setConnecting marks the start of a dial cycle. Reports false when the
// record was removed.
func (r *record) setConnecting() bool {
	r.mu.Lock()
	if r.state == StateRemoved {
		r.mu.Unlock()
		return false
	}
	already := r.state == StateConnecting
	r.state = StateConnecting
	if !already {
		r.broadcastLocked()
	}
	r.mu.Unlock()

	if !already {
		r.observeState(StateConnecting, nil)
	}
	return true
}

// connectFailed records one connect error and reports whether the retry
// budget is now exhausted.
func (r *record) connectFailed(err error) bool {
	r.mu.Lock()
	r.attempts++
	attempts := r.attempts
	r.lastErr = &Error{Kind: KindConnectFailed, Detail: fmt.Sprintf("attempt %d", attempts), Err: err}
	r.broadcastLocked()
	r.mu.Unlock()

	r.logger.Warn("connect failed",
		"attempt", attempts,
		"limit", r.opts.reconnectAttempts,
		"error", err,
	)
	return attempts >= r.opts.reconnectAttempts
}

// fail enters the terminal failed state and evicts the record from the pool.
// Later operations for this key start over with a fresh record and a reset
// retry budget.
func (r *record) fail(err error) {
	failure := &Error{Kind: KindMaxReconnectExceeded, Detail: fmt.Sprintf("%d attempts", r.opts.reconnectAttempts), Err: err}

	r.mu.Lock()
	if r.state == StateRemoved {
		r.mu.Unlock()
		return
	}
	r.state = StateFailed
	r.lastErr = failure
	r.dialCancel()
	r.broadcastLocked()
	r.mu.Unlock()

	r.evict(r)
	r.observeState(StateFailed, failure)
	r.logger.Error("reconnect budget exhausted, evicting connection",
		"attempts", r.opts.reconnectAttempts,
	)
}

// attach installs a freshly connected socket and resets the retry counter.
// Reports false when the record was removed while dialing.
func (r *record) attach(sock transport.Socket) bool {
	r.mu.Lock()
	if r.state == StateRemoved {
		r.mu.Unlock()
		return false
	}
	r.sock = sock
	r.state = StateConnected
	r.attempts = 0
	r.lastErr = nil
	r.broadcastLocked()
	r.mu.Unlock()

	r.observeState(StateConnected, nil)
	r.logger.Info("connected")
	return true
}

// detach records a wire-level disconnect; the run loop retries next. The
// wired set is cleared only after the state flips, so a subscribe landing
// mid-teardown either wires on the old socket and is cleared here, or fails
// sendControl and stays unwired. Either way replay covers it.
func (r *record) detach(reason error) {
	r.mu.Lock()
	if r.state == StateRemoved {
		r.mu.Unlock()
		return
	}
	sock := r.sock
	r.sock = nil
	r.state = StateDisconnected
	r.lastErr = nil
	r.broadcastLocked()
	r.mu.Unlock()

	r.subs.resetWired()
	if sock != nil {
		sock.Close()
	}
	r.observeState(StateDisconnected, reason)
	r.logger.Warn("connection lost", "reason", reason)
}

// remove is the explicit terminal teardown. Idempotent.
func (r *record) remove() {
	r.mu.Lock()
	if r.state == StateRemoved {
		r.mu.Unlock()
		return
	}
	r.state = StateRemoved
	sock := r.sock
	r.sock = nil
	close(r.stop)
	r.dialCancel()
	r.broadcastLocked()
	r.mu.Unlock()

	if sock != nil {
		sock.Close()
	}
	r.observeState(StateRemoved, nil)
	r.logger.Info("connection removed")
}

func (r *record) removed() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// sleep waits for d unless the record is removed first.
func (r *record) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-r.stop:
		return false
	case <-timer.C:
		return true
	}
}

// waitReady blocks until the record is connected (nil), terminally failed or
// removed (error), or — with failFast — the first connect error is observed
// even though retries continue in the background.
func (r *record) waitReady(failFast bool) error {
	for {
		r.mu.Lock()
		state, lastErr, changed := r.state, r.lastErr, r.changed
		r.mu.Unlock()

		switch state {
		case StateConnected:
			return nil
		case StateFailed:
			if lastErr != nil {
				return lastErr
			}
			return &Error{Kind: KindMaxReconnectExceeded}
		case StateRemoved:
			return &Error{Kind: KindConnectFailed, Detail: "connection removed"}
		}

		if failFast && lastErr != nil {
			return lastErr
		}
		<-changed
	}
}

// broadcastLocked wakes every waitReady caller. Callers hold r.mu.
func (r *record) broadcastLocked() {
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *record) currentState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// terminal reports whether the record can no longer serve operations.
func (r *record) terminal() bool {
	s := r.currentState()
	return s == StateFailed || s == StateRemoved
}

// sendControl issues a wire-level subscribe/unsubscribe frame on the live
// socket. Reports false when the record is not connected; the registry
// replays after the next connect.
func (r *record) sendControl(frameType, event string) bool {
	r.mu.Lock()
	sock, state := r.sock, r.state
	r.mu.Unlock()

	if state != StateConnected || sock == nil {
		return false
	}
	if err := sock.Send(transport.Frame{Type: frameType, Event: event}); err != nil {
		r.logger.Warn("wire subscription update failed",
			"type", frameType,
			"event", event,
			"error", err,
		)
		return false
	}
	return true
}

// publish sends one event frame. The record must be connected at send time;
// auto-connect does not guarantee readiness.
func (r *record) publish(event string, data any) error {
	r.mu.Lock()
	sock, state := r.sock, r.state
	r.mu.Unlock()

	if state != StateConnected || sock == nil {
		return &Error{Kind: KindNotConnected, Detail: "connection is " + state.String()}
	}

	f, err := transport.EventFrame(event, data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := sock.Send(f); err != nil {
		return &Error{Kind: KindNotConnected, Detail: "send failed", Err: err}
	}
	return nil
}

func (r *record) observeState(state State, reason error) {
	if r.observe != nil {
		r.observe(r.key, state, reason)
	}
}
