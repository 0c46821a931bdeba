package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

func TestCollectTiles_EnforcesLimit(t *testing.T) {
	p := constantProcessor[uint8]{
		tiles: []raster.Tile2D[uint8]{u8Tile(t, 1), u8Tile(t, 2), u8Tile(t, 3)},
	}
	tiles, err := p.RasterQuery(context.Background(), testQuery(t))
	require.NoError(t, err)

	_, err = CollectTiles(tiles, 2)
	var limit *TileLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.Limit)

	tiles, err = p.RasterQuery(context.Background(), testQuery(t))
	require.NoError(t, err)
	collected, err := CollectTiles(tiles, 3)
	require.NoError(t, err)
	assert.Len(t, collected, 3)
}

func TestMosaicTiles_ComposesAndFillsGaps(t *testing.T) {
	gt, err := raster.NewGeoTransform(primitives.Coordinate2D{X: 0, Y: 2}, 1, -1)
	require.NoError(t, err)

	leftBounds, err := raster.GridShape(2, 2)
	require.NoError(t, err)
	rightBounds := leftBounds.ShiftByOffset(raster.Idx(0, 2))

	left := raster.Tile2D[uint8]{
		Time:         primitives.TimeInterval{Start: 0, End: 1000},
		TilePosition: raster.Idx(0, 0),
		GeoTransform: gt,
		Grid:         raster.NewFilledGrid(leftBounds, uint8(7), nil),
	}
	right := raster.Tile2D[uint8]{
		Time:         primitives.TimeInterval{Start: 0, End: 1000},
		TilePosition: raster.Idx(0, 1),
		GeoTransform: gt,
		Grid:         raster.NewNoDataGrid(rightBounds, uint8(0)),
	}

	// The query spans 2x6 pixels; the last two columns have no tile.
	window, err := primitives.NewSpatialPartition2D(
		primitives.Coordinate2D{X: 0, Y: 2},
		primitives.Coordinate2D{X: 6, Y: 0},
	)
	require.NoError(t, err)
	query := primitives.RasterQueryRectangle{
		SpatialBounds:     window,
		TimeInterval:      primitives.TimeInterval{Start: 0, End: 1000},
		SpatialResolution: primitives.SpatialResolution{X: 1, Y: 1},
	}

	mosaic, err := MosaicTiles([]raster.Tile2D[uint8]{left, right}, query, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 6}, mosaic.Bounds.AxisSizes())

	at := func(y, x int) uint8 {
		v, err := mosaic.At(raster.Idx(y, x))
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, uint8(7), at(0, 0))
	assert.Equal(t, uint8(7), at(1, 1))
	assert.Equal(t, uint8(0), at(0, 2), "virtual no-data tile")
	assert.Equal(t, uint8(0), at(0, 4), "uncovered pixel keeps the sentinel")

	nd, ok := mosaic.NoDataValue()
	require.True(t, ok)
	assert.Equal(t, uint8(0), nd)
}

func TestMosaicTiles_ZeroTilesFails(t *testing.T) {
	_, err := MosaicTiles(nil, testQuery(t), uint8(0))
	require.Error(t, err)
}

func TestMockExecutionContext_ResolvesRegisteredMetadata(t *testing.T) {
	execCtx := NewMockExecutionContext()
	id := DatasetID{Dataset: "UTM32N:B01"}

	_, err := execCtx.RasterMetaData(context.Background(), id)
	var unknown *UnknownDatasetError
	require.ErrorAs(t, err, &unknown)

	execCtx.AddRasterMetaData(id, StaticRasterMetaData{
		Descriptor: RasterResultDescriptor{DataType: raster.U16},
	})
	meta, err := execCtx.RasterMetaData(context.Background(), id)
	require.NoError(t, err)
	desc, err := meta.ResultDescriptor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, raster.U16, desc.DataType)
}
