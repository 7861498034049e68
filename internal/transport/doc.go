// Package transport implements the wire-level event-stream client.
//
// A Socket speaks a small JSON frame protocol over WebSocket:
//   - "event" frames carry a named event with an opaque payload
//   - "subscribe"/"unsubscribe" frames register interest in a remote event
//
// The pool consumes sockets through the Socket interface and the DialFunc
// indirection; it never touches the WebSocket layer directly.
package transport
