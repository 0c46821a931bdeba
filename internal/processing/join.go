package processing

import (
	"context"
	"iter"

	"github.com/twpayne/go-geom"
	"golang.org/x/sync/errgroup"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// Join source arity bounds.
const (
	minJoinRasterSources = 1
	maxJoinRasterSources = 8
)

// RasterVectorJoinParams name the sampled columns, one per raster source.
type RasterVectorJoinParams struct {
	Names []string `json:"names"`
}

// RasterVectorJoin samples raster values at feature locations and appends
// them as new attribute columns. Exactly one vector source and one to
// eight raster sources.
type RasterVectorJoin struct {
	Params  RasterVectorJoinParams  `json:"params"`
	Vector  engine.VectorOperator   `json:"-"`
	Rasters []engine.RasterOperator `json:"-"`
}

// Initialize validates arity and structure, then builds the extended
// descriptor.
func (j *RasterVectorJoin) Initialize(
	ctx context.Context,
	execCtx engine.ExecutionContext,
) (engine.InitializedVectorOperator, error) {
	if j.Vector == nil {
		return nil, &engine.InvalidNumberOfInputsError{ExpectedMin: 1, ExpectedMax: 1, Found: 0}
	}
	if len(j.Rasters) < minJoinRasterSources || len(j.Rasters) > maxJoinRasterSources {
		return nil, &engine.InvalidNumberOfInputsError{
			ExpectedMin: minJoinRasterSources,
			ExpectedMax: maxJoinRasterSources,
			Found:       len(j.Rasters),
		}
	}
	if len(j.Params.Names) != len(j.Rasters) {
		return nil, &engine.InvalidOperatorSpecError{
			Reason: "number of column names must match the number of raster sources",
		}
	}

	vector, err := j.Vector.Initialize(ctx, execCtx)
	if err != nil {
		return nil, err
	}
	vectorDescriptor := vector.ResultDescriptor()
	if !vectorDescriptor.DataType.IsGeometry() {
		return nil, &engine.InvalidTypeError{
			Expected: "a geometry vector type",
			Found:    string(vectorDescriptor.DataType),
		}
	}

	rasters := make([]engine.InitializedRasterOperator, len(j.Rasters))
	for i, op := range j.Rasters {
		rasters[i], err = op.Initialize(ctx, execCtx)
		if err != nil {
			return nil, err
		}
	}

	columns := make([]engine.Column, 0, len(vectorDescriptor.Columns)+len(j.Params.Names))
	columns = append(columns, vectorDescriptor.Columns...)
	for _, name := range j.Params.Names {
		columns = append(columns, engine.Column{Name: name, Type: engine.FeatureFloat})
	}
	descriptor, err := engine.NewVectorResultDescriptor(
		vectorDescriptor.DataType, vectorDescriptor.SpatialReference, columns)
	if err != nil {
		return nil, &engine.InvalidOperatorSpecError{Reason: err.Error()}
	}

	return &initializedRasterVectorJoin{
		descriptor: descriptor,
		names:      j.Params.Names,
		vector:     vector,
		rasters:    rasters,
	}, nil
}

type initializedRasterVectorJoin struct {
	descriptor engine.VectorResultDescriptor
	names      []string
	vector     engine.InitializedVectorOperator
	rasters    []engine.InitializedRasterOperator
}

func (j *initializedRasterVectorJoin) ResultDescriptor() engine.VectorResultDescriptor {
	return j.descriptor
}

func (j *initializedRasterVectorJoin) QueryProcessor() (engine.TypedVectorQueryProcessor, error) {
	vector, err := j.vector.QueryProcessor()
	if err != nil {
		return engine.TypedVectorQueryProcessor{}, err
	}
	rasters := make([]engine.TypedRasterQueryProcessor, len(j.rasters))
	for i, r := range j.rasters {
		rasters[i], err = r.QueryProcessor()
		if err != nil {
			return engine.TypedVectorQueryProcessor{}, err
		}
	}
	return engine.TypedVectorQueryProcessor{
		DataType: j.descriptor.DataType,
		Processor: joinProcessor{
			names:   j.names,
			vector:  vector.Processor,
			rasters: rasters,
		},
	}, nil
}

type joinProcessor struct {
	names   []string
	vector  engine.VectorQueryProcessor
	rasters []engine.TypedRasterQueryProcessor
}

// VectorQuery streams the vector batches and extends each with one
// sampled column per raster. The sibling rasters are queried
// concurrently; results are joined by column order before the batch is
// emitted.
func (p joinProcessor) VectorQuery(
	ctx context.Context,
	query primitives.VectorQueryRectangle,
) (iter.Seq2[engine.FeatureCollection, error], error) {
	batches, err := p.vector.VectorQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	return func(yield func(engine.FeatureCollection, error) bool) {
		for fc, err := range batches {
			if err != nil {
				yield(engine.FeatureCollection{}, err)
				return
			}
			joined, err := p.joinBatch(ctx, query, fc)
			if err != nil {
				yield(engine.FeatureCollection{}, err)
				return
			}
			if !yield(joined, nil) {
				return
			}
		}
	}, nil
}

func (p joinProcessor) joinBatch(
	ctx context.Context,
	query primitives.VectorQueryRectangle,
	fc engine.FeatureCollection,
) (engine.FeatureCollection, error) {
	columns := make([][]any, len(p.rasters))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, processor := range p.rasters {
		group.Go(func() error {
			values, err := sampleColumn(groupCtx, processor, query, fc)
			if err != nil {
				return err
			}
			columns[i] = values
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return engine.FeatureCollection{}, err
	}

	joined := fc
	for i, name := range p.names {
		var err error
		joined, err = joined.WithColumn(engine.Column{Name: name, Type: engine.FeatureFloat}, columns[i])
		if err != nil {
			return engine.FeatureCollection{}, err
		}
	}
	return joined, nil
}

// sampleColumn queries one raster for the batch window and reads the
// value under each feature's anchor point. Features outside the raster or
// over no-data get a nil value.
func sampleColumn(
	ctx context.Context,
	processor engine.TypedRasterQueryProcessor,
	query primitives.VectorQueryRectangle,
	fc engine.FeatureCollection,
) ([]any, error) {
	stream, err := processor.QueryF64(ctx, query.AsRasterQuery())
	if err != nil {
		return nil, err
	}
	tiles, err := engine.CollectTiles(stream, 0)
	if err != nil {
		return nil, err
	}

	values := make([]any, fc.Len())
	for i := range values {
		point, ok := anchorPoint(fc.Geometries[i])
		if !ok {
			continue
		}
		values[i] = sampleTiles(tiles, point, fc.Times[i])
	}
	return values, nil
}

// anchorPoint is the first coordinate of the geometry.
func anchorPoint(g geom.T) (primitives.Coordinate2D, bool) {
	if g == nil {
		return primitives.Coordinate2D{}, false
	}
	flat := g.FlatCoords()
	if len(flat) < 2 {
		return primitives.Coordinate2D{}, false
	}
	return primitives.Coordinate2D{X: flat[0], Y: flat[1]}, true
}

func sampleTiles(
	tiles []raster.Tile2D[float64],
	point primitives.Coordinate2D,
	validity primitives.TimeInterval,
) any {
	for _, tile := range tiles {
		if !tile.Time.Intersects(validity) {
			continue
		}
		if !tile.SpatialPartition().Contains(point) {
			continue
		}
		v, err := tile.Grid.At(tile.GeoTransform.CoordinateToIdx(point))
		if err != nil {
			continue
		}
		if nd, ok := tile.Grid.NoDataValue(); ok && v == nd {
			return nil
		}
		return v
	}
	return nil
}
