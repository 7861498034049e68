package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrConnClosed      = errors.New("connection closed by peer")
)

// Frame types.
const (
	FrameEvent       = "event"
	FrameSubscribe   = "subscribe"
	FrameUnsubscribe = "unsubscribe"
)

// Frame is one wire message, in either direction.
type Frame struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EventFrame builds an outbound event frame carrying payload.
func EventFrame(event string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: FrameEvent, Event: event, Data: data}, nil
}

// Socket is one established event-stream connection.
type Socket interface {
	// Send writes a frame to the connection.
	Send(f Frame) error

	// Frames returns a channel of inbound frames.
	Frames() <-chan Frame

	// Errors returns a channel of connection errors. A socket that fails
	// delivers at most one error and stops reading afterward.
	Errors() <-chan error

	// Close gracefully closes the connection. Idempotent.
	Close() error
}

// DialFunc establishes a Socket to addr. The pool holds connections through
// this indirection so tests can substitute fake sockets.
type DialFunc func(ctx context.Context, addr string, opts DialOptions) (Socket, error)

// DialOptions configures a single dial and the resulting socket.
type DialOptions struct {
	Headers          map[string]string // Extra handshake headers, passed through verbatim
	Params           map[string]any    // Extra query parameters, passed through verbatim
	HandshakeTimeout time.Duration     // WebSocket handshake deadline
	WriteTimeout     time.Duration     // Write deadline for sends
	PingInterval     time.Duration     // Keepalive ping cadence
	PingTimeout      time.Duration     // Max time without ping/pong before the socket is stale
	BufferSize       int               // Inbound frame channel buffer size

	// Logger for socket diagnostics; nil falls back to slog.Default.
	Logger *slog.Logger
}

// DefaultDialOptions returns sensible defaults.
func DefaultDialOptions() DialOptions {
	return DialOptions{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     5 * time.Second,
		PingInterval:     15 * time.Second,
		PingTimeout:      60 * time.Second,
		BufferSize:       256,
	}
}

func (o DialOptions) withDefaults() DialOptions {
	def := DefaultDialOptions()
	if o.HandshakeTimeout == 0 {
		o.HandshakeTimeout = def.HandshakeTimeout
	}
	if o.WriteTimeout == 0 {
		o.WriteTimeout = def.WriteTimeout
	}
	if o.PingInterval == 0 {
		o.PingInterval = def.PingInterval
	}
	if o.PingTimeout == 0 {
		o.PingTimeout = def.PingTimeout
	}
	if o.BufferSize == 0 {
		o.BufferSize = def.BufferSize
	}
	return o
}
