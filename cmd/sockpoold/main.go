package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rickgao/sockpool/internal/config"
	"github.com/rickgao/sockpool/internal/pool"
	"github.com/rickgao/sockpool/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/sockpoold.yaml", "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))
	slog.SetDefault(logger)

	logger.Info("starting sockpoold",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"endpoints", len(cfg.Endpoints),
	)

	manager := pool.NewManager(pool.Config{
		Defaults: poolOptions(cfg.Defaults),
		Observer: func(key pool.Key, state pool.State, reason error) {
			logger.Debug("connection state changed",
				"endpoint", key.String(),
				"state", state.String(),
				"reason", reason,
			)
		},
	}, logger)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect and subscribe the configured endpoints
	for _, ep := range cfg.Endpoints {
		key := pool.Key{BaseURL: ep.URL, Namespace: ep.Namespace}
		opts := poolOptions(ep.Options)
		opts.Headers = ep.Headers
		opts.Params = ep.Params

		if err := manager.Connect(key, opts); err != nil {
			logger.Warn("initial connect failed",
				"endpoint", key.String(),
				"error", err,
			)
			// Continue: the pool keeps retrying within its budget
		}

		for _, event := range ep.Events {
			event := event
			id, err := manager.Subscribe(key, event, func(data json.RawMessage) {
				logger.Info("event received",
					"endpoint", key.String(),
					"event", event,
					"payload", string(data),
				)
			}, opts)
			if err != nil {
				logger.Warn("subscribe failed",
					"endpoint", key.String(),
					"event", event,
					"error", err,
				)
				continue
			}
			logger.Debug("subscribed",
				"endpoint", key.String(),
				"event", event,
				"subscriber", id.String(),
			)
		}
	}

	// Periodic stats logging until shutdown
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			manager.DisconnectAll()
			logger.Info("sockpoold stopped")
			return
		case <-ticker.C:
			stats := manager.Stats()
			logger.Debug("pool stats",
				"connections", stats.Connections,
				"connected", stats.Connected,
				"subscriptions", stats.Subscriptions,
			)
		}
	}
}

// poolOptions converts config options into pool options.
func poolOptions(c config.OptionsConfig) *pool.Options {
	return &pool.Options{
		ReconnectAttempts: c.ReconnectAttempts,
		ReconnectDelay:    c.ReconnectDelay,
		ConnectTimeout:    c.ConnectTimeout,
		AutoConnect:       c.AutoConnect,
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
