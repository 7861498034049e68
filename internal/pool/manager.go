package pool

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/rickgao/sockpool/internal/transport"
)

// Manager is the facade over the connection pool. It is safe for concurrent
// use by arbitrary callers.
type Manager struct {
	logger   *slog.Logger
	dial     transport.DialFunc
	defaults settings
	observe  StateObserver

	mu    sync.RWMutex
	conns map[Key]*record
}

// Config configures a Manager.
type Config struct {
	// Defaults are the base connection options; per-call Options merge over
	// them field by field.
	Defaults *Options

	// Dial establishes sockets. Nil uses the WebSocket transport.
	Dial transport.DialFunc

	// Observer, when set, is invoked on every record state transition.
	// Optional; the only required failure channel is the operation results.
	Observer StateObserver
}

// NewManager creates a connection pool manager. The manager is expected to
// live for the whole process: created once at startup, torn down with
// DisconnectAll at shutdown.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	dial := cfg.Dial
	if dial == nil {
		dial = transport.Dial
	}
	return &Manager{
		logger:   logger,
		dial:     dial,
		defaults: defaultSettings().merge(cfg.Defaults),
		observe:  cfg.Observer,
		conns:    make(map[Key]*record),
	}
}

// Connect establishes a connection for key, bounded by ConnectTimeout.
// Idempotent when the key is already connected. The first transport error is
// surfaced to the caller even though retries continue in the background.
func (m *Manager) Connect(key Key, opts *Options) error {
	if err := key.validate(); err != nil {
		return err
	}
	s := m.defaults.merge(opts)

	rec := m.getOrCreate(key, s)
	if rec.currentState() == StateConnected {
		return nil
	}
	return guard(func() error { return rec.waitReady(true) }, s.connectTimeout, KindConnectTimeout)
}

// Subscribe registers h for inbound messages on event. The connection is
// created when absent (subject to AutoConnect) and awaited, bounded by
// ConnectTimeout. Once the connection is established, subscribing is a
// local operation that does not fail.
func (m *Manager) Subscribe(key Key, event string, h Handler, opts *Options) (SubscriberID, error) {
	if err := key.validate(); err != nil {
		return NilSubscriber, err
	}
	if h == nil {
		return NilSubscriber, errors.New("nil handler")
	}
	s := m.defaults.merge(opts)

	rec, err := m.ensure(key, s)
	if err != nil {
		return NilSubscriber, err
	}
	if rec.currentState() != StateConnected {
		if err := guard(func() error { return rec.waitReady(false) }, s.connectTimeout, KindSubscribeTimeout); err != nil {
			return NilSubscriber, err
		}
	}
	return rec.subs.add(event, h), nil
}

// Unsubscribe removes one subscriber from event, or every subscriber when id
// is NilSubscriber. Missing connections, events, and ids are no-ops, never
// errors.
func (m *Manager) Unsubscribe(key Key, event string, id SubscriberID) error {
	if err := key.validate(); err != nil {
		return err
	}
	rec := m.lookup(key)
	if rec == nil {
		return nil
	}
	rec.subs.remove(event, id)
	return nil
}

// Publish sends data on event. The connection is created when absent
// (subject to AutoConnect) and awaited, bounded by ConnectTimeout; the
// record must still be connected at send time. Delivery is fire-and-forget:
// the call does not wait for remote acknowledgement.
func (m *Manager) Publish(key Key, event string, data any, opts *Options) error {
	if err := key.validate(); err != nil {
		return err
	}
	s := m.defaults.merge(opts)

	rec, err := m.ensure(key, s)
	if err != nil {
		return err
	}
	if rec.currentState() != StateConnected {
		if err := guard(func() error { return rec.waitReady(false) }, s.connectTimeout, KindPublishTimeout); err != nil {
			return err
		}
	}
	return rec.publish(event, data)
}

// Disconnect tears down and evicts the connection for key. It reports
// whether a connection was removed; disconnecting an absent key is a no-op.
func (m *Manager) Disconnect(key Key) bool {
	m.mu.Lock()
	rec, ok := m.conns[key]
	if ok {
		delete(m.conns, key)
	}
	m.mu.Unlock()

	if !ok {
		m.logger.Debug("nothing to disconnect", "endpoint", key.String())
		return false
	}
	rec.remove()
	return true
}

// DisconnectAll tears down every connection. Used at shutdown.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	recs := make([]*record, 0, len(m.conns))
	for _, rec := range m.conns {
		recs = append(recs, rec)
	}
	m.conns = make(map[Key]*record)
	m.mu.Unlock()

	for _, rec := range recs {
		rec.remove()
	}
	m.logger.Info("disconnected all", "count", len(recs))
}

// State reports the lifecycle state of the connection for key.
func (m *Manager) State(key Key) (State, bool) {
	m.mu.RLock()
	rec := m.conns[key]
	m.mu.RUnlock()

	if rec == nil {
		return 0, false
	}
	return rec.currentState(), true
}

// ManagerStats provides statistics about the pool.
type ManagerStats struct {
	Connections   int
	Connected     int
	Subscriptions int
}

// Stats returns current pool statistics.
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	recs := make([]*record, 0, len(m.conns))
	for _, rec := range m.conns {
		recs = append(recs, rec)
	}
	m.mu.RUnlock()

	stats := ManagerStats{Connections: len(recs)}
	for _, rec := range recs {
		if rec.currentState() == StateConnected {
			stats.Connected++
		}
		stats.Subscriptions += rec.subs.count()
	}
	return stats
}

// getOrCreate returns the live record for key, or publishes a new
// in-progress record before its dial resolves so concurrent callers attach
// to it instead of racing a duplicate connect.
func (m *Manager) getOrCreate(key Key, s settings) *record {
	m.mu.RLock()
	rec := m.conns[key]
	m.mu.RUnlock()
	if rec != nil && !rec.terminal() {
		return rec
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check in case it was created between locks
	if rec := m.conns[key]; rec != nil && !rec.terminal() {
		return rec
	}

	rec = newRecord(key, s, m.dial, m.logger.With("endpoint", key.String()), m.evictRecord, m.observe)
	m.conns[key] = rec
	go rec.run()
	return rec
}

// ensure resolves the record for key, creating one only when AutoConnect
// allows it.
func (m *Manager) ensure(key Key, s settings) (*record, error) {
	if rec := m.lookup(key); rec != nil {
		return rec, nil
	}
	if !s.autoConnect {
		return nil, &Error{Kind: KindNotConnected, Detail: "no connection and auto-connect disabled"}
	}
	return m.getOrCreate(key, s), nil
}

// lookup returns the live record for key, or nil.
func (m *Manager) lookup(key Key) *record {
	m.mu.RLock()
	rec := m.conns[key]
	m.mu.RUnlock()

	if rec == nil || rec.terminal() {
		return nil
	}
	return rec
}

// evictRecord removes rec from the pool unless the key was already replaced
// by a newer record.
func (m *Manager) evictRecord(rec *record) {
	m.mu.Lock()
	if cur, ok := m.conns[rec.key]; ok && cur == rec {
		delete(m.conns, rec.key)
	}
	m.mu.Unlock()
}
