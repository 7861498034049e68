package pool

import (
	"testing"
	"time"
)

func TestSettings_Defaults(t *testing.T) {
	s := defaultSettings()

	if s.reconnectAttempts != DefaultReconnectAttempts {
		t.Errorf("reconnectAttempts = %d, want %d", s.reconnectAttempts, DefaultReconnectAttempts)
	}
	if s.reconnectDelay != DefaultReconnectDelay {
		t.Errorf("reconnectDelay = %s, want %s", s.reconnectDelay, DefaultReconnectDelay)
	}
	if s.connectTimeout != DefaultConnectTimeout {
		t.Errorf("connectTimeout = %s, want %s", s.connectTimeout, DefaultConnectTimeout)
	}
	if !s.autoConnect {
		t.Error("autoConnect should default to true")
	}
}

func TestSettings_MergeExplicitWins(t *testing.T) {
	s := defaultSettings().merge(&Options{
		ReconnectAttempts: Int(0),
		ReconnectDelay:    5 * time.Millisecond,
		ConnectTimeout:    20 * time.Millisecond,
		AutoConnect:       Bool(false),
		Headers:           map[string]string{"Authorization": "Bearer t"},
		Params:            map[string]any{"room": 7},
	})

	if s.reconnectAttempts != 0 {
		t.Errorf("reconnectAttempts = %d, explicit zero must win over default", s.reconnectAttempts)
	}
	if s.reconnectDelay != 5*time.Millisecond {
		t.Errorf("reconnectDelay = %s, want 5ms", s.reconnectDelay)
	}
	if s.connectTimeout != 20*time.Millisecond {
		t.Errorf("connectTimeout = %s, want 20ms", s.connectTimeout)
	}
	if s.autoConnect {
		t.Error("explicit AutoConnect=false must win over default")
	}
	if s.headers["Authorization"] != "Bearer t" {
		t.Errorf("headers = %v", s.headers)
	}
	if s.params["room"] != 7 {
		t.Errorf("params = %v", s.params)
	}
}

func TestSettings_MergeNilKeepsDefaults(t *testing.T) {
	s := defaultSettings().merge(nil)
	if s.reconnectAttempts != DefaultReconnectAttempts ||
		s.reconnectDelay != DefaultReconnectDelay ||
		s.connectTimeout != DefaultConnectTimeout ||
		!s.autoConnect || s.headers != nil || s.params != nil {
		t.Errorf("merge(nil) changed settings: %+v", s)
	}
}

func TestSettings_MergePartial(t *testing.T) {
	s := defaultSettings().merge(&Options{ConnectTimeout: time.Minute})

	if s.connectTimeout != time.Minute {
		t.Errorf("connectTimeout = %s, want 1m", s.connectTimeout)
	}
	if s.reconnectAttempts != DefaultReconnectAttempts || !s.autoConnect {
		t.Errorf("unset fields must keep defaults: %+v", s)
	}
}

func TestSettings_NegativeAttemptsClamped(t *testing.T) {
	s := defaultSettings().merge(&Options{ReconnectAttempts: Int(-5)})
	if s.reconnectAttempts != 0 {
		t.Errorf("reconnectAttempts = %d, want clamp to 0", s.reconnectAttempts)
	}
}
