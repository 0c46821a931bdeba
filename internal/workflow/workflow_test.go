package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/processing"
	"github.com/geoengine-bot/geoengine/internal/source"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

const rasterSourceJSON = `{
	"type": "RasterSource",
	"params": {
		"dataset": {
			"provider": "5779494c-f3a2-48b3-8a2d-5fbba8c5b6c5",
			"dataset": "UTM32N:B01"
		}
	}
}`

const reprojectionJSON = `{
	"type": "Reprojection",
	"params": {"targetSpatialReference": {"authority": "EPSG", "code": 3857}},
	"sources": {"raster": [` + rasterSourceJSON + `]}
}`

const joinJSON = `{
	"type": "RasterVectorJoin",
	"params": {"names": ["b01"]},
	"sources": {
		"vector": [{"type": "ShapefileSource", "params": {"path": "sites.shp"}}],
		"raster": [` + rasterSourceJSON + `]
	}
}`

func rasterWorkflow() Workflow {
	return Workflow{Type: TypeRaster, Operator: json.RawMessage(reprojectionJSON)}
}

func TestDecodeRasterOperator_BuildsNestedGraph(t *testing.T) {
	op, err := DecodeRasterOperator([]byte(reprojectionJSON))
	require.NoError(t, err)

	reprojection, ok := op.(*processing.Reprojection)
	require.True(t, ok)
	assert.Equal(t, spatialref.WebMercator(), reprojection.Params.TargetSpatialReference)

	child, ok := reprojection.Source.(*source.RasterSource)
	require.True(t, ok)
	assert.Equal(t, "UTM32N:B01", child.Params.Dataset.Dataset)
	assert.Equal(t, uuid.MustParse("5779494c-f3a2-48b3-8a2d-5fbba8c5b6c5"),
		child.Params.Dataset.Provider)
}

func TestDecodeVectorOperator_BuildsJoinGraph(t *testing.T) {
	op, err := DecodeVectorOperator([]byte(joinJSON))
	require.NoError(t, err)

	join, ok := op.(*processing.RasterVectorJoin)
	require.True(t, ok)
	assert.Equal(t, []string{"b01"}, join.Params.Names)
	require.Len(t, join.Rasters, 1)

	shapefile, ok := join.Vector.(*source.ShapefileSource)
	require.True(t, ok)
	assert.Equal(t, "sites.shp", shapefile.Params.Path)
}

func TestDecodeOperator_Failures(t *testing.T) {
	// ---- unknown type ----
	_, err := DecodeRasterOperator([]byte(`{"type": "Blur", "params": {}}`))
	var unknown *UnknownOperatorError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Blur", unknown.Type)

	// ---- missing type ----
	var spec *engine.InvalidOperatorSpecError
	_, err = DecodeRasterOperator([]byte(`{"params": {}}`))
	require.ErrorAs(t, err, &spec)

	// ---- missing source ----
	_, err = DecodeRasterOperator([]byte(
		`{"type": "Reprojection", "params": {"targetSpatialReference": {"authority": "EPSG", "code": 3857}}}`))
	require.ErrorAs(t, err, &spec)

	// ---- source on a leaf operator ----
	_, err = DecodeRasterOperator([]byte(
		`{"type": "RasterSource", "params": {"dataset": {"dataset": "x"}},
		  "sources": {"raster": [` + rasterSourceJSON + `]}}`))
	require.ErrorAs(t, err, &spec)

	// ---- malformed json ----
	_, err = DecodeVectorOperator([]byte(`{`))
	require.Error(t, err)
}

func TestWorkflow_TypeMismatch(t *testing.T) {
	w := rasterWorkflow()
	_, err := w.VectorOperator()
	var badType *engine.InvalidTypeError
	require.ErrorAs(t, err, &badType)

	_, err = w.RasterOperator()
	require.NoError(t, err)
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Migrate(ctx))

	id, err := store.Register(ctx, rasterWorkflow())
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, id)

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, TypeRaster, loaded.Type)
	assert.JSONEq(t, reprojectionJSON, string(loaded.Operator))

	listings, err := store.List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, id, listings[0].ID)

	// ---- unknown id ----
	var notFound *NotFoundError
	_, err = store.Load(ctx, uuid.New())
	require.ErrorAs(t, err, &notFound)
}

func TestMemoryStore_RejectsInvalidWorkflows(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Register(context.Background(),
		Workflow{Type: TypeRaster, Operator: json.RawMessage(`{"type": "Blur", "params": {}}`)})
	require.Error(t, err)

	_, err = store.Register(context.Background(),
		Workflow{Type: "Plot", Operator: json.RawMessage(rasterSourceJSON)})
	require.Error(t, err)
}

func TestMemoryStore_ListPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for range 5 {
		_, err := store.Register(ctx, rasterWorkflow())
		require.NoError(t, err)
	}

	page, err := store.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := store.List(ctx, 10, 4)
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	empty, err := store.List(ctx, 10, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
