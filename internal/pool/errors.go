package pool

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a facade operation failure.
type ErrorKind string

const (
	// KindInvalidEndpoint marks a malformed key that slipped past upstream
	// validation.
	KindInvalidEndpoint ErrorKind = "invalid_endpoint"

	// KindConnectTimeout marks a connect deadline that elapsed before the
	// handshake completed.
	KindConnectTimeout ErrorKind = "connect_timeout"

	// KindConnectFailed marks a transport connect error surfaced to the
	// caller while background retries may still continue.
	KindConnectFailed ErrorKind = "connect_failed"

	// KindMaxReconnectExceeded marks an exhausted retry budget; the record
	// has been evicted.
	KindMaxReconnectExceeded ErrorKind = "max_reconnect_exceeded"

	// KindNotConnected marks a publish against a record that is not in the
	// connected state at send time.
	KindNotConnected ErrorKind = "not_connected"

	// KindSubscribeTimeout and KindPublishTimeout mark deadlines that
	// elapsed while waiting for the connection prerequisite.
	KindSubscribeTimeout ErrorKind = "subscribe_timeout"
	KindPublishTimeout   ErrorKind = "publish_timeout"
)

// Error is the structured failure returned by facade operations. It is
// always returned as a value, never raised as a panic.
type Error struct {
	Kind   ErrorKind
	Detail string
	Err    error // underlying transport error, if any
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the kind carried by err. It returns the empty kind when
// err is nil or not a pool error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

func timeoutError(kind ErrorKind, elapsed fmt.Stringer) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf("deadline %s elapsed", elapsed)}
}
