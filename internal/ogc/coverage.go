package ogc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/processing"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// defaultGridCells sizes the output grid when the request carries no
// gridoffsets.
const defaultGridCells = 256

// getCoverage executes the workflow over the request window and encodes
// the mosaicked result.
func (h *Handler) getCoverage(
	ctx context.Context,
	workflowID uuid.UUID,
	req CoverageRequest,
) (Encoder, []byte, error) {
	if req.GridOrigin != nil && *req.GridOrigin != req.BoundingBox.UpperLeft {
		return nil, nil, &GridOriginMismatchError{
			Origin:    *req.GridOrigin,
			UpperLeft: req.BoundingBox.UpperLeft,
		}
	}
	if req.BoundingBoxCrs != nil && *req.BoundingBoxCrs != req.GridBaseCrs {
		return nil, nil, &BoundingBoxCrsMismatchError{
			BoundingBoxCrs: *req.BoundingBoxCrs,
			GridBaseCrs:    req.GridBaseCrs,
		}
	}
	encoder, ok := h.encoders[req.Format]
	if !ok {
		return nil, nil, &UnsupportedFormatError{Format: req.Format}
	}

	wf, err := h.workflows.Load(ctx, workflowID)
	if err != nil {
		return nil, nil, err
	}
	operator, err := wf.RasterOperator()
	if err != nil {
		return nil, nil, err
	}

	initialized, err := operator.Initialize(ctx, h.execCtx)
	if err != nil {
		return nil, nil, err
	}
	workflowSrs, err := initialized.ResultDescriptor().MustSpatialReference()
	if err != nil {
		return nil, nil, err
	}

	// Requests in a foreign CRS get an implicit reprojection on top of the
	// workflow graph.
	if workflowSrs != req.GridBaseCrs {
		zap.L().Debug("reprojecting coverage",
			zap.String("workflow_crs", workflowSrs.String()),
			zap.String("request_crs", req.GridBaseCrs.String()),
		)
		operator = &processing.Reprojection{
			Params: processing.ReprojectionParams{TargetSpatialReference: req.GridBaseCrs},
			Source: operator,
		}
		initialized, err = operator.Initialize(ctx, h.execCtx)
		if err != nil {
			return nil, nil, err
		}
	}

	query, err := coverageQuery(req)
	if err != nil {
		return nil, nil, err
	}

	processor, err := initialized.QueryProcessor()
	if err != nil {
		return nil, nil, err
	}

	coverage, err := RenderCoverage(ctx, processor, query, h.tileLimit, req.GridBaseCrs)
	if err != nil {
		return nil, nil, err
	}

	body, err := encoder.Encode(coverage)
	if err != nil {
		return nil, nil, err
	}
	return encoder, body, nil
}

// coverageQuery builds the query window. Missing gridoffsets default to a
// nominal 256x256 grid over the bounding box; a missing time defaults to
// the current instant.
func coverageQuery(req CoverageRequest) (primitives.RasterQueryRectangle, error) {
	resolution := primitives.SpatialResolution{}
	if req.GridOffsets != nil {
		resolution = *req.GridOffsets
	} else {
		var err error
		resolution, err = primitives.NewSpatialResolution(
			req.BoundingBox.SizeX()/defaultGridCells,
			req.BoundingBox.SizeY()/defaultGridCells,
		)
		if err != nil {
			return primitives.RasterQueryRectangle{}, err
		}
	}

	interval := primitives.NewInstant(primitives.InstantFromTime(time.Now()))
	if req.Time != nil {
		interval = *req.Time
	}

	return primitives.RasterQueryRectangle{
		SpatialBounds:     req.BoundingBox,
		TimeInterval:      interval,
		SpatialResolution: resolution,
	}, nil
}

// RenderCoverage collects the tile stream of whichever pixel type the
// processor carries and mosaics it into one dense grid.
func RenderCoverage(
	ctx context.Context,
	processor engine.TypedRasterQueryProcessor,
	query primitives.RasterQueryRectangle,
	tileLimit int,
	srs spatialref.SpatialReference,
) (Coverage, error) {
	switch processor.DataType {
	case raster.U8:
		return renderTyped(ctx, processor.U8, query, tileLimit, srs)
	case raster.U16:
		return renderTyped(ctx, processor.U16, query, tileLimit, srs)
	case raster.U32:
		return renderTyped(ctx, processor.U32, query, tileLimit, srs)
	case raster.I8:
		return renderTyped(ctx, processor.I8, query, tileLimit, srs)
	case raster.I16:
		return renderTyped(ctx, processor.I16, query, tileLimit, srs)
	case raster.I32:
		return renderTyped(ctx, processor.I32, query, tileLimit, srs)
	case raster.F32:
		return renderTyped(ctx, processor.F32, query, tileLimit, srs)
	case raster.F64:
		return renderTyped(ctx, processor.F64, query, tileLimit, srs)
	default:
		return Coverage{}, &engine.UnsupportedDataTypeError{DataType: processor.DataType}
	}
}

func renderTyped[P raster.Pixel](
	ctx context.Context,
	processor engine.RasterQueryProcessor[P],
	query primitives.RasterQueryRectangle,
	tileLimit int,
	srs spatialref.SpatialReference,
) (Coverage, error) {
	if processor == nil {
		return Coverage{}, &engine.UnsupportedDataTypeError{DataType: raster.TypeOf[P]()}
	}

	stream, err := processor.RasterQuery(ctx, query)
	if err != nil {
		return Coverage{}, err
	}
	tiles, err := engine.CollectTiles(stream, tileLimit)
	if err != nil {
		return Coverage{}, err
	}
	if len(tiles) == 0 {
		return Coverage{}, eris.New("the query produced no tiles")
	}

	var noData P
	if sentinel, ok := tiles[0].Grid.NoDataValue(); ok {
		noData = sentinel
	}
	grid, err := engine.MosaicTiles(tiles, query, noData)
	if err != nil {
		return Coverage{}, err
	}

	return Coverage{
		DataType:         raster.TypeOf[P](),
		Grid:             raster.ConvertGrid[P, float64](grid),
		GeoTransform:     tiles[0].GeoTransform,
		SpatialReference: srs,
		Time:             query.TimeInterval,
	}, nil
}
