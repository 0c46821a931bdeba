package processing

import (
	"context"
	"iter"
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// ReprojectionParams fix the CRS of the operator's output.
type ReprojectionParams struct {
	TargetSpatialReference spatialref.SpatialReference `json:"targetSpatialReference"`
}

// Reprojection transforms its raster input into another CRS. Queries in
// the target CRS are translated into source-CRS queries; output pixels
// are filled by inverse projection with nearest-neighbour lookup.
type Reprojection struct {
	Params ReprojectionParams    `json:"params"`
	Source engine.RasterOperator `json:"-"`
}

// Initialize validates the CRS pair eagerly so unsupported projections
// fail at build time, not per tile.
func (r *Reprojection) Initialize(
	ctx context.Context,
	execCtx engine.ExecutionContext,
) (engine.InitializedRasterOperator, error) {
	if r.Source == nil {
		return nil, &engine.InvalidNumberOfInputsError{ExpectedMin: 1, ExpectedMax: 1, Found: 0}
	}
	source, err := r.Source.Initialize(ctx, execCtx)
	if err != nil {
		return nil, err
	}

	sourceDescriptor := source.ResultDescriptor()
	sourceSrs, err := sourceDescriptor.MustSpatialReference()
	if err != nil {
		return nil, err
	}
	// Both directions are needed: forward for sizing the source query,
	// inverse for pixel lookup.
	if _, err := spatialref.NewProjector(r.Params.TargetSpatialReference, sourceSrs); err != nil {
		return nil, err
	}
	if _, err := spatialref.NewProjector(sourceSrs, r.Params.TargetSpatialReference); err != nil {
		return nil, err
	}

	descriptor := sourceDescriptor
	target := r.Params.TargetSpatialReference
	descriptor.SpatialReference = &target

	return &initializedReprojection{
		descriptor: descriptor,
		sourceSrs:  sourceSrs,
		source:     source,
		tiling:     execCtx.TilingSpecification(),
	}, nil
}

type initializedReprojection struct {
	descriptor engine.RasterResultDescriptor
	sourceSrs  spatialref.SpatialReference
	source     engine.InitializedRasterOperator
	tiling     engine.TilingSpecification
}

func (r *initializedReprojection) ResultDescriptor() engine.RasterResultDescriptor {
	return r.descriptor
}

func (r *initializedReprojection) QueryProcessor() (engine.TypedRasterQueryProcessor, error) {
	child, err := r.source.QueryProcessor()
	if err != nil {
		return engine.TypedRasterQueryProcessor{}, err
	}
	switch child.DataType {
	case raster.U8:
		return engine.NewTypedRasterProcessor[uint8](newReprojectProcessor(r, child.U8)), nil
	case raster.U16:
		return engine.NewTypedRasterProcessor[uint16](newReprojectProcessor(r, child.U16)), nil
	case raster.U32:
		return engine.NewTypedRasterProcessor[uint32](newReprojectProcessor(r, child.U32)), nil
	case raster.I8:
		return engine.NewTypedRasterProcessor[int8](newReprojectProcessor(r, child.I8)), nil
	case raster.I16:
		return engine.NewTypedRasterProcessor[int16](newReprojectProcessor(r, child.I16)), nil
	case raster.I32:
		return engine.NewTypedRasterProcessor[int32](newReprojectProcessor(r, child.I32)), nil
	case raster.F32:
		return engine.NewTypedRasterProcessor[float32](newReprojectProcessor(r, child.F32)), nil
	case raster.F64:
		return engine.NewTypedRasterProcessor[float64](newReprojectProcessor(r, child.F64)), nil
	default:
		return engine.TypedRasterQueryProcessor{}, &engine.UnsupportedDataTypeError{DataType: child.DataType}
	}
}

func newReprojectProcessor[P raster.Pixel](
	r *initializedReprojection,
	child engine.RasterQueryProcessor[P],
) reprojectProcessor[P] {
	return reprojectProcessor[P]{
		child:     child,
		sourceSrs: r.sourceSrs,
		targetSrs: *r.descriptor.SpatialReference,
		tiling:    r.tiling,
		noData:    r.descriptor.NoData,
	}
}

type reprojectProcessor[P raster.Pixel] struct {
	child     engine.RasterQueryProcessor[P]
	sourceSrs spatialref.SpatialReference
	targetSrs spatialref.SpatialReference
	tiling    engine.TilingSpecification
	noData    *float64
}

func (p reprojectProcessor[P]) RasterQuery(
	ctx context.Context,
	query primitives.RasterQueryRectangle,
) (iter.Seq2[raster.Tile2D[P], error], error) {
	// One projector serves both purposes: sizing the source query and
	// mapping output pixel centers back into the source frame.
	toSource, err := spatialref.NewProjector(p.targetSrs, p.sourceSrs)
	if err != nil {
		return nil, err
	}

	sourceQuery, err := p.sourceQuery(toSource, query)
	if err != nil {
		return nil, err
	}

	strategy := p.tiling.Strategy(query.SpatialBounds, query.SpatialResolution)
	tileBounds, err := strategy.TileGridBounds(query.SpatialBounds)
	if err != nil {
		return nil, err
	}

	var sentinel P
	if p.noData != nil {
		sentinel = P(*p.noData)
	}

	return func(yield func(raster.Tile2D[P], error) bool) {
		stream, err := p.child.RasterQuery(ctx, sourceQuery)
		if err != nil {
			yield(raster.Tile2D[P]{}, err)
			return
		}
		tiles, err := engine.CollectTiles(stream, 0)
		if err != nil {
			yield(raster.Tile2D[P]{}, err)
			return
		}

		for ty := tileBounds.Min[0]; ty <= tileBounds.Max[0]; ty++ {
			for tx := tileBounds.Min[1]; tx <= tileBounds.Max[1]; tx++ {
				tile := p.makeTile(toSource, strategy, raster.Idx(ty, tx), tiles, sentinel, query.TimeInterval)
				if !yield(tile, nil) {
					return
				}
			}
		}
	}, nil
}

// sourceQuery projects the target window into the source CRS and derives
// a resolution keeping the pixel count.
func (p reprojectProcessor[P]) sourceQuery(
	forward *spatialref.Projector,
	query primitives.RasterQueryRectangle,
) (primitives.RasterQueryRectangle, error) {
	bbox, err := forward.ProjectBBoxClipped(query.SpatialBounds.AsBoundingBox())
	if err != nil {
		return primitives.RasterQueryRectangle{}, err
	}
	bounds := primitives.PartitionFromBoundingBox(bbox)

	cols := math.Ceil(query.SpatialBounds.SizeX() / query.SpatialResolution.X)
	rows := math.Ceil(query.SpatialBounds.SizeY() / query.SpatialResolution.Y)
	resolution, err := primitives.NewSpatialResolution(bounds.SizeX()/cols, bounds.SizeY()/rows)
	if err != nil {
		return primitives.RasterQueryRectangle{}, err
	}

	return primitives.RasterQueryRectangle{
		SpatialBounds:     bounds,
		TimeInterval:      query.TimeInterval,
		SpatialResolution: resolution,
	}, nil
}

func (p reprojectProcessor[P]) makeTile(
	toSource *spatialref.Projector,
	strategy raster.TilingStrategy,
	tileIdx raster.GridIdx,
	sourceTiles []raster.Tile2D[P],
	sentinel P,
	queryTime primitives.TimeInterval,
) raster.Tile2D[P] {
	pixelBounds := strategy.TilePixelBounds(tileIdx)

	var noData *P
	if p.noData != nil {
		nd := sentinel
		noData = &nd
	}
	out := raster.NewFilledGrid(pixelBounds, sentinel, noData)

	tileTime := queryTime
	for y := pixelBounds.Min[0]; y <= pixelBounds.Max[0]; y++ {
		for x := pixelBounds.Min[1]; x <= pixelBounds.Max[1]; x++ {
			center := primitives.Coordinate2D{
				X: strategy.GeoTransform.OriginCoordinate.X + (float64(x)+0.5)*strategy.GeoTransform.XPixelSize,
				Y: strategy.GeoTransform.OriginCoordinate.Y + (float64(y)+0.5)*strategy.GeoTransform.YPixelSize,
			}
			sourceCoord, err := toSource.Project(center)
			if err != nil {
				continue
			}
			for _, st := range sourceTiles {
				if !st.SpatialPartition().Contains(sourceCoord) {
					continue
				}
				v, err := st.Grid.At(st.GeoTransform.CoordinateToIdx(sourceCoord))
				if err != nil {
					continue
				}
				out.SetUnchecked(raster.Idx(y, x), v)
				tileTime = st.Time
				break
			}
		}
	}

	return raster.Tile2D[P]{
		Time:         tileTime,
		TilePosition: tileIdx.Clone(),
		GeoTransform: strategy.GeoTransform,
		Grid:         out,
	}
}

// VectorReprojection transforms vector geometries into another CRS.
type VectorReprojection struct {
	Params ReprojectionParams    `json:"params"`
	Source engine.VectorOperator `json:"-"`
}

func (r *VectorReprojection) Initialize(
	ctx context.Context,
	execCtx engine.ExecutionContext,
) (engine.InitializedVectorOperator, error) {
	if r.Source == nil {
		return nil, &engine.InvalidNumberOfInputsError{ExpectedMin: 1, ExpectedMax: 1, Found: 0}
	}
	source, err := r.Source.Initialize(ctx, execCtx)
	if err != nil {
		return nil, err
	}

	descriptor := source.ResultDescriptor()
	if descriptor.SpatialReference == nil {
		return nil, &engine.MissingSpatialReferenceError{}
	}
	sourceSrs := *descriptor.SpatialReference
	if _, err := spatialref.NewProjector(sourceSrs, r.Params.TargetSpatialReference); err != nil {
		return nil, err
	}

	target := r.Params.TargetSpatialReference
	descriptor.SpatialReference = &target

	return &initializedVectorReprojection{
		descriptor: descriptor,
		sourceSrs:  sourceSrs,
		source:     source,
	}, nil
}

type initializedVectorReprojection struct {
	descriptor engine.VectorResultDescriptor
	sourceSrs  spatialref.SpatialReference
	source     engine.InitializedVectorOperator
}

func (r *initializedVectorReprojection) ResultDescriptor() engine.VectorResultDescriptor {
	return r.descriptor
}

func (r *initializedVectorReprojection) QueryProcessor() (engine.TypedVectorQueryProcessor, error) {
	child, err := r.source.QueryProcessor()
	if err != nil {
		return engine.TypedVectorQueryProcessor{}, err
	}
	return engine.TypedVectorQueryProcessor{
		DataType: r.descriptor.DataType,
		Processor: vectorReprojectProcessor{
			child:     child.Processor,
			sourceSrs: r.sourceSrs,
			targetSrs: *r.descriptor.SpatialReference,
		},
	}, nil
}

type vectorReprojectProcessor struct {
	child     engine.VectorQueryProcessor
	sourceSrs spatialref.SpatialReference
	targetSrs spatialref.SpatialReference
}

func (p vectorReprojectProcessor) VectorQuery(
	ctx context.Context,
	query primitives.VectorQueryRectangle,
) (iter.Seq2[engine.FeatureCollection, error], error) {
	// The query arrives in the target CRS and is translated for the child.
	backward, err := spatialref.NewProjector(p.targetSrs, p.sourceSrs)
	if err != nil {
		return nil, err
	}
	forward, err := spatialref.NewProjector(p.sourceSrs, p.targetSrs)
	if err != nil {
		return nil, err
	}

	childQuery := query
	childQuery.SpatialBounds, err = backward.ProjectBBoxClipped(query.SpatialBounds)
	if err != nil {
		return nil, err
	}

	batches, err := p.child.VectorQuery(ctx, childQuery)
	if err != nil {
		return nil, err
	}

	return func(yield func(engine.FeatureCollection, error) bool) {
		for fc, err := range batches {
			if err != nil {
				yield(engine.FeatureCollection{}, err)
				return
			}
			projected := fc
			projected.Geometries = make([]geom.T, len(fc.Geometries))
			for i, g := range fc.Geometries {
				pg, err := projectGeometry(forward, g)
				if err != nil {
					yield(engine.FeatureCollection{}, err)
					return
				}
				projected.Geometries[i] = pg
			}
			if !yield(projected, nil) {
				return
			}
		}
	}, nil
}

// projectGeometry rebuilds the geometry with every coordinate transformed.
func projectGeometry(projector *spatialref.Projector, g geom.T) (geom.T, error) {
	if g == nil {
		return nil, nil
	}
	flat := slices.Clone(g.FlatCoords())
	stride := g.Stride()
	for i := 0; i+1 < len(flat); i += stride {
		c, err := projector.Project(primitives.Coordinate2D{X: flat[i], Y: flat[i+1]})
		if err != nil {
			return nil, err
		}
		flat[i], flat[i+1] = c.X, c.Y
	}

	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(t.Layout(), flat), nil
	case *geom.MultiPoint:
		return geom.NewMultiPointFlat(t.Layout(), flat), nil
	case *geom.LineString:
		return geom.NewLineStringFlat(t.Layout(), flat), nil
	case *geom.MultiLineString:
		return geom.NewMultiLineStringFlat(t.Layout(), flat, slices.Clone(t.Ends())), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), flat, slices.Clone(t.Ends())), nil
	case *geom.MultiPolygon:
		endss := make([][]int, len(t.Endss()))
		for i, ends := range t.Endss() {
			endss[i] = slices.Clone(ends)
		}
		return geom.NewMultiPolygonFlat(t.Layout(), flat, endss), nil
	default:
		return nil, eris.Errorf("unsupported geometry type %T", g)
	}
}
