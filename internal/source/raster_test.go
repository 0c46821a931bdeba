package source

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/fetch"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

func testDataset() engine.DatasetID {
	return engine.DatasetID{Dataset: "test:elevation"}
}

// sourceContext registers a 4x4 asset at (0,0)..(4,4) with cell size 1
// behind a single load instruction valid over [0, 1000).
func sourceContext(t *testing.T, parts []engine.LoadingInfoPart) *engine.MockExecutionContext {
	t.Helper()

	grid := ASCIIGrid{
		Cols: 4, Rows: 4,
		XLLCorner: 0, YLLCorner: 0,
		CellSize: 1,
		Data: []float64{
			1, 2, 3, 4,
			5, 6, 7, 8,
			9, 10, 11, 12,
			13, 14, 15, 16,
		},
	}
	var payload bytes.Buffer
	require.NoError(t, grid.Encode(&payload))

	execCtx := engine.NewMockExecutionContext()
	execCtx.SetTilingSpecification(engine.TilingSpecification{TileRows: 2, TileCols: 2})
	execCtx.AddAsset("mem://elevation.asc", payload.Bytes())

	srs := spatialref.Epsg4326()
	noData := 0.0
	execCtx.AddRasterMetaData(testDataset(), engine.StaticRasterMetaData{
		Descriptor: engine.RasterResultDescriptor{
			DataType:         raster.U8,
			SpatialReference: &srs,
			Measurement:      primitives.Measurement{Name: "elevation", Unit: "m"},
			NoData:           &noData,
		},
		Info: engine.LoadingInfo{Parts: parts},
	})
	return execCtx
}

func elevationPart(location string) engine.LoadingInfoPart {
	return engine.LoadingInfoPart{
		Time:     primitives.TimeInterval{Start: 0, End: 1000},
		Location: location,
		GeoTransform: raster.GeoTransform{
			OriginCoordinate: primitives.Coordinate2D{X: 0, Y: 4},
			XPixelSize:       1,
			YPixelSize:       -1,
		},
		Width:           4,
		Height:          4,
		Band:            1,
		NoDataOnMissing: true,
	}
}

func elevationQuery(t *testing.T) primitives.RasterQueryRectangle {
	t.Helper()
	bounds, err := primitives.NewSpatialPartition2D(
		primitives.Coordinate2D{X: 0, Y: 4},
		primitives.Coordinate2D{X: 4, Y: 0},
	)
	require.NoError(t, err)
	return primitives.RasterQueryRectangle{
		SpatialBounds:     bounds,
		TimeInterval:      primitives.TimeInterval{Start: 0, End: 1000},
		SpatialResolution: primitives.SpatialResolution{X: 1, Y: 1},
	}
}

func TestRasterSource_ReadsTilesFromAsset(t *testing.T) {
	execCtx := sourceContext(t, []engine.LoadingInfoPart{elevationPart("mem://elevation.asc")})

	op := &RasterSource{Params: RasterSourceParams{Dataset: testDataset()}}
	initialized, err := op.Initialize(context.Background(), execCtx)
	require.NoError(t, err)
	assert.Equal(t, raster.U8, initialized.ResultDescriptor().DataType)

	typed, err := initialized.QueryProcessor()
	require.NoError(t, err)
	processor, err := typed.GetU8()
	require.NoError(t, err)

	stream, err := processor.RasterQuery(context.Background(), elevationQuery(t))
	require.NoError(t, err)
	tiles, err := engine.CollectTiles(stream, 0)
	require.NoError(t, err)

	// A 4x4 query window in 2x2 tiles yields 4 tiles for the one part.
	require.Len(t, tiles, 4)
	assert.Equal(t, raster.Idx(0, 0), tiles[0].TilePosition)
	assert.Equal(t, raster.Idx(1, 1), tiles[3].TilePosition)

	v, err := tiles[0].Grid.At(raster.Idx(0, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(1), v)

	v, err = tiles[3].Grid.At(raster.Idx(3, 3))
	require.NoError(t, err)
	assert.Equal(t, uint8(16), v)

	for _, tile := range tiles {
		assert.Equal(t, primitives.TimeInterval{Start: 0, End: 1000}, tile.Time)
	}
}

func TestRasterSource_MissingAssetBecomesNoData(t *testing.T) {
	execCtx := sourceContext(t, []engine.LoadingInfoPart{elevationPart("mem://absent.asc")})

	op := &RasterSource{Params: RasterSourceParams{Dataset: testDataset()}}
	initialized, err := op.Initialize(context.Background(), execCtx)
	require.NoError(t, err)
	typed, err := initialized.QueryProcessor()
	require.NoError(t, err)
	processor, err := typed.GetU8()
	require.NoError(t, err)

	stream, err := processor.RasterQuery(context.Background(), elevationQuery(t))
	require.NoError(t, err)
	tiles, err := engine.CollectTiles(stream, 0)
	require.NoError(t, err)

	require.Len(t, tiles, 4)
	for _, tile := range tiles {
		_, ok := tile.Grid.(raster.NoDataGrid[uint8])
		assert.True(t, ok, "missing asset yields virtual no-data tiles")
	}
}

func TestRasterSource_MissingAssetWithoutPolicyFails(t *testing.T) {
	part := elevationPart("mem://absent.asc")
	part.NoDataOnMissing = false
	execCtx := sourceContext(t, []engine.LoadingInfoPart{part})

	op := &RasterSource{Params: RasterSourceParams{Dataset: testDataset()}}
	initialized, err := op.Initialize(context.Background(), execCtx)
	require.NoError(t, err)
	typed, err := initialized.QueryProcessor()
	require.NoError(t, err)
	processor, err := typed.GetU8()
	require.NoError(t, err)

	stream, err := processor.RasterQuery(context.Background(), elevationQuery(t))
	require.NoError(t, err)
	_, err = engine.CollectTiles(stream, 0)
	assert.True(t, fetch.IsNotFound(err), err)
}

func TestRasterSource_UnknownDataset(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	op := &RasterSource{Params: RasterSourceParams{Dataset: testDataset()}}
	_, err := op.Initialize(context.Background(), execCtx)
	var unknown *engine.UnknownDatasetError
	require.ErrorAs(t, err, &unknown)
}

func TestAssetCache_LRUAndTTL(t *testing.T) {
	c := NewAssetCache(2, 50*time.Millisecond)

	c.Put("a", []byte("A"))
	c.Put("b", []byte("B"))
	assert.Equal(t, []byte("A"), c.Get("a"))

	// "b" is now the oldest and gets evicted.
	c.Put("c", []byte("C"))
	assert.Nil(t, c.Get("b"))
	assert.Equal(t, []byte("A"), c.Get("a"))
	assert.Equal(t, []byte("C"), c.Get("c"))

	time.Sleep(60 * time.Millisecond)
	assert.Nil(t, c.Get("a"), "expired entries miss")

	stats := c.Stats()
	assert.Equal(t, int64(3), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCachingFetcher_ServesSecondReadFromCache(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	execCtx.AddAsset("mem://x", []byte("payload"))

	cached := &CachingFetcher{Inner: execCtx.Fetcher(), Cache: NewAssetCache(4, time.Minute)}

	read := func() string {
		body, err := cached.Fetch(context.Background(), "mem://x")
		require.NoError(t, err)
		defer body.Close() //nolint:errcheck
		var buf bytes.Buffer
		_, err = buf.ReadFrom(body)
		require.NoError(t, err)
		return buf.String()
	}

	assert.Equal(t, "payload", read())
	assert.Equal(t, "payload", read())
	assert.Equal(t, int64(1), cached.Cache.Stats().Hits)

	_, err := cached.Fetch(context.Background(), "mem://missing")
	assert.True(t, fetch.IsNotFound(err))
}
