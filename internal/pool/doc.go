// Package pool manages a keyed pool of long-lived event-stream connections.
//
// The pool:
//   - Guarantees at most one live connection per (base URL, namespace) key
//     under concurrent callers
//   - Multiplexes many local subscribers onto a single wire-level
//     subscription per remote event
//   - Bounds connect, subscribe, and publish with caller-visible deadlines
//   - Retries lost connections within a bounded budget and evicts endpoints
//     that exhaust it
package pool
