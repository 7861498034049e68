package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// socket implements the Socket interface over a WebSocket connection.
type socket struct {
	opts   DialOptions
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	frames chan Frame
	errs   chan error
	done   chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	lastPingAt time.Time
	closed     bool
}

// Dial establishes a WebSocket connection to addr and returns a connected
// Socket. addr may use http/https schemes; they are rewritten to ws/wss.
// Headers and query parameters from opts are passed through verbatim.
func Dial(ctx context.Context, addr string, opts DialOptions) (Socket, error) {
	opts = opts.withDefaults()

	wsURL, err := buildURL(addr, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	header := http.Header{}
	for k, v := range opts.Headers {
		header.Set(k, v)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &socket{
		opts:       opts,
		logger:     logger,
		conn:       conn,
		frames:     make(chan Frame, opts.BufferSize),
		errs:       make(chan error, 1),
		done:       make(chan struct{}),
		lastPingAt: time.Now(),
	}

	// Server pings are answered with pongs; either direction refreshes the
	// staleness clock.
	conn.SetPingHandler(func(data string) error {
		s.touch()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})

	go s.readLoop()
	go s.heartbeatLoop()

	logger.Debug("socket connected", "url", wsURL)

	return s, nil
}

// buildURL rewrites the scheme for WebSocket dialing and appends the extra
// query parameters.
func buildURL(addr string, params map[string]any) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func (s *socket) touch() {
	s.mu.Lock()
	s.lastPingAt = time.Now()
	s.mu.Unlock()
}

// Send marshals the frame and writes it to the connection.
func (s *socket) Send(f Frame) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrNotConnected
	}
	s.mu.RUnlock()

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Frames returns the inbound frame channel.
func (s *socket) Frames() <-chan Frame {
	return s.frames
}

// Errors returns the error channel.
func (s *socket) Errors() <-chan error {
	return s.errs
}

// Close gracefully closes the connection.
func (s *socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// Signal goroutines to stop
	close(s.done)

	// Send close message, then tear down the underlying connection
	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return s.conn.Close()
}

// readLoop reads messages from the WebSocket, decodes frames, and sends them
// to the frames channel. Malformed messages are logged and skipped.
func (s *socket) readLoop() {
	defer close(s.frames)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-s.done:
				return
			default:
			}
			select {
			case s.errs <- err:
			default:
			}
			return
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			s.logger.Warn("dropping malformed frame", "error", err, "size", len(data))
			continue
		}

		select {
		case s.frames <- f:
		case <-s.done:
			return
		default:
			s.logger.Warn("frame buffer full, dropping frame", "event", f.Event)
		}
	}
}

// heartbeatLoop sends keepalive pings and detects stale connections.
func (s *socket) heartbeatLoop() {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.opts.WriteTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline); err != nil {
				s.logger.Debug("failed to send ping", "error", err)
			}

			s.mu.RLock()
			lastPing := s.lastPingAt
			s.mu.RUnlock()

			if time.Since(lastPing) > s.opts.PingTimeout {
				s.logger.Warn("no ping received, connection stale",
					"last_ping", lastPing,
					"timeout", s.opts.PingTimeout,
				)
				select {
				case s.errs <- ErrStaleConnection:
				default:
				}
				return
			}
		}
	}
}
