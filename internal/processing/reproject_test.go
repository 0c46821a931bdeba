package processing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

const (
	// Web mercator coordinates of (2°E, 2°N).
	mercatorX2 = 222_638.98158654665
	mercatorY2 = 222_684.20850554318
)

func TestReprojection_DescriptorCarriesTargetCrs(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	op := &Reprojection{
		Params: ReprojectionParams{TargetSpatialReference: spatialref.WebMercator()},
		Source: elevationRaster(t),
	}

	initialized, err := op.Initialize(context.Background(), execCtx)
	require.NoError(t, err)
	descriptor := initialized.ResultDescriptor()
	require.NotNil(t, descriptor.SpatialReference)
	assert.Equal(t, spatialref.WebMercator(), *descriptor.SpatialReference)
	assert.Equal(t, raster.U8, descriptor.DataType)
}

func TestReprojection_UnsupportedCrsPairFailsAtInitialization(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	op := &Reprojection{
		Params: ReprojectionParams{TargetSpatialReference: spatialref.New(spatialref.Epsg, 2154)},
		Source: elevationRaster(t),
	}
	_, err := op.Initialize(context.Background(), execCtx)
	require.Error(t, err)
}

func TestReprojection_MissingSourceCrsFails(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	src := elevationRaster(t)
	src.Descriptor.SpatialReference = nil

	op := &Reprojection{
		Params: ReprojectionParams{TargetSpatialReference: spatialref.WebMercator()},
		Source: src,
	}
	_, err := op.Initialize(context.Background(), execCtx)
	var missing *engine.MissingSpatialReferenceError
	require.ErrorAs(t, err, &missing)
}

func TestReprojection_ResamplesPixelsIntoTargetCrs(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	execCtx.SetTilingSpecification(engine.TilingSpecification{TileRows: 2, TileCols: 2})

	op := &Reprojection{
		Params: ReprojectionParams{TargetSpatialReference: spatialref.WebMercator()},
		Source: elevationRaster(t),
	}
	initialized, err := op.Initialize(context.Background(), execCtx)
	require.NoError(t, err)
	typed, err := initialized.QueryProcessor()
	require.NoError(t, err)
	processor, err := typed.GetU8()
	require.NoError(t, err)

	bounds, err := primitives.NewSpatialPartition2D(
		primitives.Coordinate2D{X: 0, Y: mercatorY2},
		primitives.Coordinate2D{X: mercatorX2, Y: 0},
	)
	require.NoError(t, err)
	query := primitives.RasterQueryRectangle{
		SpatialBounds:     bounds,
		TimeInterval:      primitives.TimeInterval{Start: 0, End: 1000},
		SpatialResolution: primitives.SpatialResolution{X: mercatorX2 / 2, Y: mercatorY2 / 2},
	}

	stream, err := processor.RasterQuery(context.Background(), query)
	require.NoError(t, err)
	tiles, err := engine.CollectTiles(stream, 0)
	require.NoError(t, err)
	require.Len(t, tiles, 1)

	// The source is a 2x2 degree grid at (0,0)..(2,2); each target pixel
	// center maps back into the matching source cell.
	at := func(y, x int) uint8 {
		v, err := tiles[0].Grid.At(raster.Idx(y, x))
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, uint8(10), at(0, 0))
	assert.Equal(t, uint8(20), at(0, 1))
	assert.Equal(t, uint8(30), at(1, 0))
	assert.Equal(t, uint8(40), at(1, 1))
	assert.Equal(t, primitives.TimeInterval{Start: 0, End: 1000}, tiles[0].Time)
}

func TestVectorReprojection_ProjectsGeometries(t *testing.T) {
	execCtx := engine.NewMockExecutionContext()
	op := &VectorReprojection{
		Params: ReprojectionParams{TargetSpatialReference: spatialref.WebMercator()},
		Source: pointsVector(t, []float64{2, 2}),
	}
	initialized, err := op.Initialize(context.Background(), execCtx)
	require.NoError(t, err)
	require.NotNil(t, initialized.ResultDescriptor().SpatialReference)
	assert.Equal(t, spatialref.WebMercator(), *initialized.ResultDescriptor().SpatialReference)

	typed, err := initialized.QueryProcessor()
	require.NoError(t, err)

	bbox, err := primitives.NewBoundingBox2D(
		primitives.Coordinate2D{X: 0, Y: 0},
		primitives.Coordinate2D{X: mercatorX2 * 2, Y: mercatorY2 * 2},
	)
	require.NoError(t, err)
	batches, err := typed.Processor.VectorQuery(context.Background(), primitives.VectorQueryRectangle{
		SpatialBounds:     bbox,
		TimeInterval:      primitives.TimeInterval{Start: 0, End: 1000},
		SpatialResolution: primitives.ResolutionOne(),
	})
	require.NoError(t, err)

	var collected []engine.FeatureCollection
	for fc, err := range batches {
		require.NoError(t, err)
		collected = append(collected, fc)
	}
	require.Len(t, collected, 1)
	require.Len(t, collected[0].Geometries, 1)

	point, ok := collected[0].Geometries[0].(*geom.MultiPoint)
	require.True(t, ok)
	flat := point.FlatCoords()
	assert.InDelta(t, mercatorX2, flat[0], 1)
	assert.InDelta(t, mercatorY2, flat[1], 1)
}
