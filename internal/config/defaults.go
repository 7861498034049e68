package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel          = "info"
	DefaultReconnectAttempts = 3
	DefaultReconnectDelay    = 1 * time.Second
	DefaultConnectTimeout    = 5 * time.Second
)

func (c *DaemonConfig) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	if c.Defaults.ReconnectAttempts == nil {
		n := DefaultReconnectAttempts
		c.Defaults.ReconnectAttempts = &n
	}
	if c.Defaults.ReconnectDelay == 0 {
		c.Defaults.ReconnectDelay = DefaultReconnectDelay
	}
	if c.Defaults.ConnectTimeout == 0 {
		c.Defaults.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Defaults.AutoConnect == nil {
		b := true
		c.Defaults.AutoConnect = &b
	}

	for i := range c.Endpoints {
		if c.Endpoints[i].Namespace == "" {
			c.Endpoints[i].Namespace = "/"
		}
	}
}
