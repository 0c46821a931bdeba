package source

import (
	"context"
	"iter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/fetch"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// RasterSourceParams identify the dataset to read.
type RasterSourceParams struct {
	Dataset engine.DatasetID `json:"dataset"`
}

// RasterSource is the leaf operator reading catalog-backed raster data.
// Asset payloads are Esri ASCII grids; placement and validity come from
// the dataset's load instructions.
type RasterSource struct {
	Params RasterSourceParams `json:"params"`
}

// Initialize resolves the dataset's metadata and fixes the descriptor.
func (s *RasterSource) Initialize(
	ctx context.Context,
	execCtx engine.ExecutionContext,
) (engine.InitializedRasterOperator, error) {
	meta, err := execCtx.RasterMetaData(ctx, s.Params.Dataset)
	if err != nil {
		return nil, err
	}
	descriptor, err := meta.ResultDescriptor(ctx)
	if err != nil {
		return nil, err
	}
	return &initializedRasterSource{
		descriptor: descriptor,
		meta:       meta,
		fetcher:    execCtx.Fetcher(),
		tiling:     execCtx.TilingSpecification(),
	}, nil
}

type initializedRasterSource struct {
	descriptor engine.RasterResultDescriptor
	meta       engine.RasterMetaData
	fetcher    fetch.Fetcher
	tiling     engine.TilingSpecification
}

func (s *initializedRasterSource) ResultDescriptor() engine.RasterResultDescriptor {
	return s.descriptor
}

func (s *initializedRasterSource) QueryProcessor() (engine.TypedRasterQueryProcessor, error) {
	switch s.descriptor.DataType {
	case raster.U8:
		return engine.NewTypedRasterProcessor[uint8](newSourceProcessor[uint8](s)), nil
	case raster.U16:
		return engine.NewTypedRasterProcessor[uint16](newSourceProcessor[uint16](s)), nil
	case raster.U32:
		return engine.NewTypedRasterProcessor[uint32](newSourceProcessor[uint32](s)), nil
	case raster.I8:
		return engine.NewTypedRasterProcessor[int8](newSourceProcessor[int8](s)), nil
	case raster.I16:
		return engine.NewTypedRasterProcessor[int16](newSourceProcessor[int16](s)), nil
	case raster.I32:
		return engine.NewTypedRasterProcessor[int32](newSourceProcessor[int32](s)), nil
	case raster.F32:
		return engine.NewTypedRasterProcessor[float32](newSourceProcessor[float32](s)), nil
	case raster.F64:
		return engine.NewTypedRasterProcessor[float64](newSourceProcessor[float64](s)), nil
	default:
		return engine.TypedRasterQueryProcessor{}, &engine.UnsupportedDataTypeError{
			DataType: s.descriptor.DataType,
		}
	}
}

type sourceProcessor[P raster.Pixel] struct {
	meta      engine.RasterMetaData
	fetcher   fetch.Fetcher
	tiling    engine.TilingSpecification
	noData    P
	hasNoData bool
}

func newSourceProcessor[P raster.Pixel](s *initializedRasterSource) sourceProcessor[P] {
	p := sourceProcessor[P]{
		meta:    s.meta,
		fetcher: s.fetcher,
		tiling:  s.tiling,
	}
	if s.descriptor.NoData != nil {
		p.noData = P(*s.descriptor.NoData)
		p.hasNoData = true
	}
	return p
}

// RasterQuery resolves load instructions eagerly and defers all asset
// access to iteration: tiles are produced per instruction in time order,
// row-major within each instruction.
func (p sourceProcessor[P]) RasterQuery(
	ctx context.Context,
	query primitives.RasterQueryRectangle,
) (iter.Seq2[raster.Tile2D[P], error], error) {
	info, err := p.meta.LoadingInfo(ctx, query)
	if err != nil {
		return nil, err
	}
	strategy := p.tiling.Strategy(query.SpatialBounds, query.SpatialResolution)
	tileBounds, err := strategy.TileGridBounds(query.SpatialBounds)
	if err != nil {
		return nil, err
	}

	return func(yield func(raster.Tile2D[P], error) bool) {
		for _, part := range info.Parts {
			grid, err := p.loadPart(ctx, part)
			if err != nil {
				yield(raster.Tile2D[P]{}, err)
				return
			}
			for ty := tileBounds.Min[0]; ty <= tileBounds.Max[0]; ty++ {
				for tx := tileBounds.Min[1]; tx <= tileBounds.Max[1]; tx++ {
					tile := p.makeTile(part, grid, strategy, raster.Idx(ty, tx))
					if !yield(tile, nil) {
						return
					}
				}
			}
		}
	}, nil
}

// loadPart fetches and decodes one asset. A missing asset yields a nil
// grid (whole-part no-data) when the instruction allows it.
func (p sourceProcessor[P]) loadPart(
	ctx context.Context,
	part engine.LoadingInfoPart,
) (*ASCIIGrid, error) {
	body, err := p.fetcher.Fetch(ctx, part.Location)
	if err != nil {
		if fetch.IsNotFound(err) && part.NoDataOnMissing {
			zap.L().Debug("missing asset treated as no-data",
				zap.String("location", part.Location))
			return nil, nil
		}
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	grid, err := ParseASCIIGrid(body)
	if err != nil {
		return nil, eris.Wrapf(err, "decode asset %s", part.Location)
	}
	if grid.Cols != part.Width || grid.Rows != part.Height {
		zap.L().Warn("asset dimensions differ from catalog metadata",
			zap.String("location", part.Location),
			zap.Int("cols", grid.Cols), zap.Int("rows", grid.Rows),
			zap.Int("width", part.Width), zap.Int("height", part.Height),
		)
	}
	return &grid, nil
}

// makeTile resamples the source pixels onto one target tile with nearest
// neighbour lookup through the pixel centers.
func (p sourceProcessor[P]) makeTile(
	part engine.LoadingInfoPart,
	grid *ASCIIGrid,
	strategy raster.TilingStrategy,
	tileIdx raster.GridIdx,
) raster.Tile2D[P] {
	pixelBounds := strategy.TilePixelBounds(tileIdx)

	tile := raster.Tile2D[P]{
		Time:         part.Time,
		TilePosition: tileIdx.Clone(),
		GeoTransform: strategy.GeoTransform,
	}
	if grid == nil {
		tile.Grid = raster.NewNoDataGrid(pixelBounds, p.noData)
		return tile
	}

	var noData *P
	if p.hasNoData {
		sentinel := p.noData
		noData = &sentinel
	}
	out := raster.NewFilledGrid(pixelBounds, p.noData, noData)
	for y := pixelBounds.Min[0]; y <= pixelBounds.Max[0]; y++ {
		for x := pixelBounds.Min[1]; x <= pixelBounds.Max[1]; x++ {
			center := primitives.Coordinate2D{
				X: strategy.GeoTransform.OriginCoordinate.X + (float64(x)+0.5)*strategy.GeoTransform.XPixelSize,
				Y: strategy.GeoTransform.OriginCoordinate.Y + (float64(y)+0.5)*strategy.GeoTransform.YPixelSize,
			}
			src := part.GeoTransform.CoordinateToIdx(center)
			if src[0] < 0 || src[0] >= grid.Rows || src[1] < 0 || src[1] >= grid.Cols {
				continue
			}
			v, ok := grid.ValueAt(src[0], src[1])
			if !ok {
				continue
			}
			out.SetUnchecked(raster.Idx(y, x), P(v))
		}
	}
	tile.Grid = out
	return tile
}
