package config

import "time"

// DaemonConfig is the root configuration for a sockpoold instance.
type DaemonConfig struct {
	Log       LogConfig        `yaml:"log"`
	Defaults  OptionsConfig    `yaml:"defaults"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// OptionsConfig holds the pool-wide default connection options. Per-endpoint
// options override these field by field.
type OptionsConfig struct {
	ReconnectAttempts *int          `yaml:"reconnect_attempts"`
	ReconnectDelay    time.Duration `yaml:"reconnect_delay"`
	ConnectTimeout    time.Duration `yaml:"connect_timeout"`
	AutoConnect       *bool         `yaml:"auto_connect"`
}

// EndpointConfig describes one endpoint the daemon connects at startup.
type EndpointConfig struct {
	URL       string            `yaml:"url"`
	Namespace string            `yaml:"namespace"`
	Events    []string          `yaml:"events"` // remote events to subscribe
	Headers   map[string]string `yaml:"headers"`
	Params    map[string]any    `yaml:"params"`
	Options   OptionsConfig     `yaml:"options"`
}
