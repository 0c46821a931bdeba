package main

import (
	"context"
	"errors"
	"io/fs"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/config"
	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/fetch"
	"github.com/geoengine-bot/geoengine/internal/provider"
	"github.com/geoengine-bot/geoengine/internal/source"
	"github.com/geoengine-bot/geoengine/internal/stac"
	"github.com/geoengine-bot/geoengine/internal/workflow"
)

// engineEnv bundles everything a command needs to execute workflows.
type engineEnv struct {
	Store    workflow.Store
	Registry *provider.Registry
	ExecCtx  engine.ExecutionContext
}

func (e *engineEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("closing workflow store", zap.Error(err))
		}
	}
}

// initEngine opens the workflow store, loads the data providers and wires
// the execution context.
func initEngine(ctx context.Context) (*engineEnv, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	execCtx := provider.NewExecutionContext(registry, buildFetcher(cfg), engine.TilingSpecification{
		TileRows: cfg.Tiling.TileRows,
		TileCols: cfg.Tiling.TileCols,
	})

	return &engineEnv{Store: store, Registry: registry, ExecCtx: execCtx}, nil
}

// openStore picks the workflow store backend by configured driver.
func openStore(ctx context.Context, cfg *config.Config) (workflow.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return workflow.NewPostgres(ctx, cfg.Store.DatabaseURL, &workflow.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite":
		return workflow.NewSQLite(cfg.Store.DatabaseURL)
	case "memory":
		return workflow.NewMemoryStore(), nil
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// loadRegistry initializes all provider definitions. A missing definitions
// directory yields an empty registry so the engine still serves stored
// workflows backed by nothing.
func loadRegistry(cfg *config.Config) (*provider.Registry, error) {
	registry, err := provider.InitializeAll(cfg.Providers, sentinelOptions(cfg))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("provider definitions directory not found",
				zap.String("dir", cfg.Providers))
			return provider.NewRegistry(), nil
		}
		return nil, err
	}
	return registry, nil
}

func sentinelOptions(cfg *config.Config) provider.SentinelOptions {
	return provider.SentinelOptions{
		Client: stac.ClientOptions{
			UserAgent:         cfg.Stac.UserAgent,
			Timeout:           cfg.Stac.Timeout(),
			RequestsPerSecond: cfg.Stac.RequestsPerSecond,
		},
		Resolver: stac.ResolverOptions{
			PageLimit:         cfg.Stac.PageLimit,
			LastAssetValidity: cfg.Stac.LastAssetValidity(),
		},
	}
}

// buildFetcher assembles the asset access chain: protocol dispatch,
// optionally behind the in-memory asset cache.
func buildFetcher(cfg *config.Config) fetch.Fetcher {
	dispatcher := fetch.NewDispatcher(
		fetch.NewHTTPFetcher(fetch.HTTPOptions{
			UserAgent:         cfg.Fetch.UserAgent,
			Timeout:           cfg.Fetch.Timeout(),
			RequestsPerSecond: cfg.Fetch.RequestsPerSecond,
		}),
		fetch.NewFTPFetcher(fetch.FTPOptions{Timeout: cfg.Fetch.Timeout()}),
	)
	if cfg.Fetch.CacheEntries <= 0 {
		return dispatcher
	}
	return &source.CachingFetcher{
		Inner: dispatcher,
		Cache: source.NewAssetCache(cfg.Fetch.CacheEntries, cfg.Fetch.CacheTTL()),
	}
}
