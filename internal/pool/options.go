package pool

import "time"

// Default values for connection options.
const (
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 1 * time.Second
	DefaultConnectTimeout    = 5 * time.Second
)

// Options configures a connection. Per-call options are merged field by
// field over the manager defaults; an explicit value always wins. Pointer
// fields distinguish "unset" from an explicit zero or false.
type Options struct {
	// ReconnectAttempts is the number of consecutive connect errors
	// tolerated before the record is evicted. Non-negative; zero evicts on
	// the first error. Default 3.
	ReconnectAttempts *int

	// ReconnectDelay is the wait between connect attempts. Default 1s.
	ReconnectDelay time.Duration

	// ConnectTimeout bounds connect and the connection-establishing half of
	// subscribe and publish. Default 5s.
	ConnectTimeout time.Duration

	// AutoConnect lets subscribe and publish create a connection for a key
	// that has none. Default true.
	AutoConnect *bool

	// Headers are extra transport handshake headers, passed through
	// verbatim.
	Headers map[string]string

	// Params are extra query parameters, passed through verbatim.
	Params map[string]any
}

// Int returns a pointer to n, for literal option values.
func Int(n int) *int { return &n }

// Bool returns a pointer to b, for literal option values.
func Bool(b bool) *bool { return &b }

// settings is a fully resolved Options.
type settings struct {
	reconnectAttempts int
	reconnectDelay    time.Duration
	connectTimeout    time.Duration
	autoConnect       bool
	headers           map[string]string
	params            map[string]any
}

func defaultSettings() settings {
	return settings{
		reconnectAttempts: DefaultReconnectAttempts,
		reconnectDelay:    DefaultReconnectDelay,
		connectTimeout:    DefaultConnectTimeout,
		autoConnect:       true,
	}
}

// merge applies o over s field by field and returns the result. A nil o
// leaves s unchanged.
func (s settings) merge(o *Options) settings {
	if o == nil {
		return s
	}
	if o.ReconnectAttempts != nil {
		s.reconnectAttempts = max(*o.ReconnectAttempts, 0)
	}
	if o.ReconnectDelay > 0 {
		s.reconnectDelay = o.ReconnectDelay
	}
	if o.ConnectTimeout > 0 {
		s.connectTimeout = o.ConnectTimeout
	}
	if o.AutoConnect != nil {
		s.autoConnect = *o.AutoConnect
	}
	if o.Headers != nil {
		s.headers = o.Headers
	}
	if o.Params != nil {
		s.params = o.Params
	}
	return s
}
