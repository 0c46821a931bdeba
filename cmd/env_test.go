package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/config"
	"github.com/geoengine-bot/geoengine/internal/fetch"
	"github.com/geoengine-bot/geoengine/internal/source"
	"github.com/geoengine-bot/geoengine/internal/workflow"
)

func storeConfig(driver, url string) *config.Config {
	c := &config.Config{}
	c.Store.Driver = driver
	c.Store.DatabaseURL = url
	return c
}

func TestOpenStore_Memory(t *testing.T) {
	s, err := openStore(context.Background(), storeConfig("memory", ""))
	require.NoError(t, err)
	assert.IsType(t, &workflow.MemoryStore{}, s)
}

func TestOpenStore_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflows.db")
	s, err := openStore(context.Background(), storeConfig("sqlite", path))
	require.NoError(t, err)
	defer s.Close() //nolint:errcheck

	assert.IsType(t, &workflow.SQLiteStore{}, s)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), storeConfig("oracle", ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestBuildFetcher_WithoutCache(t *testing.T) {
	c := &config.Config{}
	c.Fetch.CacheEntries = 0

	f := buildFetcher(c)
	assert.IsType(t, &fetch.Dispatcher{}, f)
}

func TestBuildFetcher_WithCache(t *testing.T) {
	c := &config.Config{}
	c.Fetch.CacheEntries = 8
	c.Fetch.CacheTTLSecs = 60

	f := buildFetcher(c)
	assert.IsType(t, &source.CachingFetcher{}, f)
}

func TestSentinelOptions_MapsConfig(t *testing.T) {
	c := &config.Config{}
	c.Stac.UserAgent = "geoengine-test"
	c.Stac.TimeoutSecs = 12
	c.Stac.RequestsPerSecond = 3
	c.Stac.PageLimit = 250
	c.Stac.LastAssetValiditySecs = 7

	opts := sentinelOptions(c)
	assert.Equal(t, "geoengine-test", opts.Client.UserAgent)
	assert.Equal(t, 12*time.Second, opts.Client.Timeout)
	assert.Equal(t, 3.0, opts.Client.RequestsPerSecond)
	assert.Equal(t, 250, opts.Resolver.PageLimit)
	assert.Equal(t, 7*time.Second, opts.Resolver.LastAssetValidity)
}
