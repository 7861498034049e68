package pool

import (
	"encoding/json"
	"net/url"

	"github.com/google/uuid"
)

// Key identifies one logical connection: an endpoint base URL plus a
// namespace. Two operations with the same key always observe the same
// connection record.
type Key struct {
	BaseURL   string
	Namespace string
}

// Address joins the base URL and namespace into the dial target.
func (k Key) Address() string {
	return k.BaseURL + k.Namespace
}

func (k Key) String() string {
	return k.Address()
}

// validate rejects keys that slipped past upstream validation. The pool
// reports these as a structured failure rather than panicking downstream.
func (k Key) validate() error {
	if k.BaseURL == "" || k.Namespace == "" {
		return &Error{Kind: KindInvalidEndpoint, Detail: "empty base URL or namespace"}
	}
	if _, err := url.Parse(k.BaseURL); err != nil {
		return &Error{Kind: KindInvalidEndpoint, Detail: "malformed base URL", Err: err}
	}
	return nil
}

// State is the lifecycle state of a connection record.
type State int

const (
	// StateConnecting means a dial is in flight for this record.
	StateConnecting State = iota

	// StateConnected means the record has an established socket.
	StateConnected

	// StateDisconnected means the socket was lost and a retry is pending.
	StateDisconnected

	// StateFailed means the retry budget is exhausted. Terminal; the record
	// has been evicted from the pool.
	StateFailed

	// StateRemoved means the record was explicitly disconnected. Terminal.
	StateRemoved
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	case StateRemoved:
		return "removed"
	}
	return "unknown"
}

// Handler receives one inbound message for a subscribed event. Handlers run
// on the connection's receive goroutine: a handler that may block should hand
// the payload off to its own goroutine or channel.
type Handler func(data json.RawMessage)

// SubscriberID is the opaque identity of one local subscription, returned by
// Subscribe and consumed by Unsubscribe.
type SubscriberID uuid.UUID

// NilSubscriber addresses every subscriber of an event in Unsubscribe.
var NilSubscriber SubscriberID

func newSubscriberID() SubscriberID {
	return SubscriberID(uuid.New())
}

func (id SubscriberID) String() string {
	return uuid.UUID(id).String()
}

// StateObserver is invoked on every record state transition. Optional;
// observers must not block.
type StateObserver func(key Key, state State, reason error)
