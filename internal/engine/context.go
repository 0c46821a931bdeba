package engine

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/geoengine-bot/geoengine/internal/fetch"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// DatasetID names one dataset within one data provider.
type DatasetID struct {
	Provider uuid.UUID `json:"provider"`
	Dataset  string    `json:"dataset"`
}

func (d DatasetID) String() string {
	return d.Provider.String() + ":" + d.Dataset
}

// LoadingInfoPart is one concrete load instruction: a file or asset URL
// with its placement and validity. Sources turn parts into tiles.
type LoadingInfoPart struct {
	Time         primitives.TimeInterval
	Location     string
	GeoTransform raster.GeoTransform
	Width        int
	Height       int
	Band         int
	// NoDataOnMissing turns an unreachable asset into a no-data tile
	// instead of a query error.
	NoDataOnMissing bool
}

// LoadingInfo is the ordered sequence of load instructions answering one
// query. Parts are sorted by validity start and their intervals do not
// overlap.
type LoadingInfo struct {
	Parts []LoadingInfoPart
}

// RasterMetaData resolves queries to load instructions and describes the
// dataset's raster result.
type RasterMetaData interface {
	ResultDescriptor(ctx context.Context) (RasterResultDescriptor, error)
	LoadingInfo(ctx context.Context, query primitives.RasterQueryRectangle) (LoadingInfo, error)
}

// ExecutionContext supplies operators with everything external to the graph
// during initialization: dataset metadata, asset access and the tiling in
// effect.
type ExecutionContext interface {
	RasterMetaData(ctx context.Context, id DatasetID) (RasterMetaData, error)
	TilingSpecification() TilingSpecification
	Fetcher() fetch.Fetcher
}

// TilingSpecification fixes the tile shape used by every processor of one
// execution.
type TilingSpecification struct {
	TileRows int
	TileCols int
}

// DefaultTilingSpecification uses the standard square tile size.
func DefaultTilingSpecification() TilingSpecification {
	return TilingSpecification{TileRows: raster.DefaultTileSize, TileCols: raster.DefaultTileSize}
}

// Strategy anchors the tiling at the query window with the requested
// resolution.
func (t TilingSpecification) Strategy(
	bounds primitives.SpatialPartition2D,
	resolution primitives.SpatialResolution,
) raster.TilingStrategy {
	strategy := raster.NewTilingStrategy(bounds, resolution)
	strategy.TileRows = t.TileRows
	strategy.TileCols = t.TileCols
	return strategy
}

// StaticRasterMetaData is a RasterMetaData with fixed answers, used by
// in-memory providers and tests.
type StaticRasterMetaData struct {
	Descriptor RasterResultDescriptor
	Info       LoadingInfo
}

func (m StaticRasterMetaData) ResultDescriptor(context.Context) (RasterResultDescriptor, error) {
	return m.Descriptor, nil
}

func (m StaticRasterMetaData) LoadingInfo(
	_ context.Context, _ primitives.RasterQueryRectangle,
) (LoadingInfo, error) {
	return m.Info, nil
}

// MockExecutionContext serves metadata and assets from in-memory tables.
type MockExecutionContext struct {
	mu      sync.RWMutex
	tiling  TilingSpecification
	rasters map[DatasetID]RasterMetaData
	assets  map[string][]byte
}

// NewMockExecutionContext creates an empty context with the default tiling.
func NewMockExecutionContext() *MockExecutionContext {
	return &MockExecutionContext{
		tiling:  DefaultTilingSpecification(),
		rasters: make(map[DatasetID]RasterMetaData),
		assets:  make(map[string][]byte),
	}
}

// AddRasterMetaData registers metadata for a dataset id.
func (c *MockExecutionContext) AddRasterMetaData(id DatasetID, meta RasterMetaData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rasters[id] = meta
}

// SetTilingSpecification overrides the default tiling.
func (c *MockExecutionContext) SetTilingSpecification(t TilingSpecification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tiling = t
}

// AddAsset registers an asset payload under its location.
func (c *MockExecutionContext) AddAsset(location string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assets[location] = payload
}

func (c *MockExecutionContext) RasterMetaData(_ context.Context, id DatasetID) (RasterMetaData, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.rasters[id]
	if !ok {
		return nil, &UnknownDatasetError{Dataset: id.String()}
	}
	return meta, nil
}

func (c *MockExecutionContext) TilingSpecification() TilingSpecification {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tiling
}

func (c *MockExecutionContext) Fetcher() fetch.Fetcher {
	return mockFetcher{ctx: c}
}

type mockFetcher struct {
	ctx *MockExecutionContext
}

func (f mockFetcher) Fetch(_ context.Context, location string) (io.ReadCloser, error) {
	f.ctx.mu.RLock()
	payload, ok := f.ctx.assets[location]
	f.ctx.mu.RUnlock()
	if !ok {
		return nil, &fetch.NotFoundError{Location: location}
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}
