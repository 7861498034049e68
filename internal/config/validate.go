package config

import (
	"fmt"
	"net/url"
	"strings"
)

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that all required fields are set and values are valid.
func (c *DaemonConfig) Validate() error {
	if !logLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of debug/info/warn/error, got %q", c.Log.Level)
	}

	if c.Defaults.ReconnectAttempts != nil && *c.Defaults.ReconnectAttempts < 0 {
		return fmt.Errorf("defaults.reconnect_attempts must be >= 0, got %d", *c.Defaults.ReconnectAttempts)
	}
	if c.Defaults.ReconnectDelay < 0 {
		return fmt.Errorf("defaults.reconnect_delay must be >= 0")
	}
	if c.Defaults.ConnectTimeout <= 0 {
		return fmt.Errorf("defaults.connect_timeout must be > 0")
	}

	for i, ep := range c.Endpoints {
		if err := ep.validate(fmt.Sprintf("endpoints[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func (ep *EndpointConfig) validate(prefix string) error {
	if ep.URL == "" {
		return fmt.Errorf("%s.url is required", prefix)
	}
	u, err := url.Parse(ep.URL)
	if err != nil {
		return fmt.Errorf("%s.url is not a valid URL: %w", prefix, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return fmt.Errorf("%s.url has unsupported scheme %q", prefix, u.Scheme)
	}

	if !strings.HasPrefix(ep.Namespace, "/") {
		return fmt.Errorf("%s.namespace must start with '/', got %q", prefix, ep.Namespace)
	}

	if ep.Options.ReconnectAttempts != nil && *ep.Options.ReconnectAttempts < 0 {
		return fmt.Errorf("%s.options.reconnect_attempts must be >= 0", prefix)
	}

	return nil
}
