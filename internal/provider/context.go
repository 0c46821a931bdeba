package provider

import (
	"context"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/fetch"
)

// ExecutionContext combines the provider registry with an asset fetcher
// and a fixed tiling. It is the engine.ExecutionContext used outside of
// tests.
type ExecutionContext struct {
	registry *Registry
	fetcher  fetch.Fetcher
	tiling   engine.TilingSpecification
}

// NewExecutionContext wires the three halves together.
func NewExecutionContext(
	registry *Registry,
	fetcher fetch.Fetcher,
	tiling engine.TilingSpecification,
) *ExecutionContext {
	return &ExecutionContext{registry: registry, fetcher: fetcher, tiling: tiling}
}

func (c *ExecutionContext) RasterMetaData(
	ctx context.Context,
	id engine.DatasetID,
) (engine.RasterMetaData, error) {
	return c.registry.RasterMetaData(ctx, id)
}

func (c *ExecutionContext) TilingSpecification() engine.TilingSpecification {
	return c.tiling
}

func (c *ExecutionContext) Fetcher() fetch.Fetcher {
	return c.fetcher
}
