package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	graphstore "github.com/stoneforge-ai/stoneforge-sub017"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/adapters/file"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/adapters/redis"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/config"
	"github.com/stoneforge-ai/stoneforge-sub017/internal/logging"
	"github.com/stoneforge-ai/stoneforge-sub017/pkg/observability"
)

// newEngine builds an engine from the effective configuration. The memory
// backend gives each invocation a fresh store, so long-lived commands
// (serve, mcp) are the useful pairing for it; the CLI data commands expect
// a durable backend (redis or file).
func newEngine(cmd *cobra.Command, withMetrics bool) (*graphstore.Engine, *config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level))

	opts := []graphstore.Option{
		graphstore.WithLogger(logger),
	}

	switch cfg.Store.Backend {
	case "redis":
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix))
		opts = append(opts, graphstore.WithStores(store, store, store))
	case "file":
		store, err := file.Open(cfg.File.Path)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, graphstore.WithStores(store, store, store))
	}

	if withMetrics {
		opts = append(opts, graphstore.WithMetrics(
			observability.NewMetrics(prometheus.DefaultRegisterer)))
	}

	return graphstore.New(opts...), cfg, nil
}
