package engine

import (
	"context"
	"iter"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// RasterQueryProcessor answers raster queries with a lazy tile stream.
// The returned sequence yields tiles ordered by time, then row, then
// column; iteration stops at the first error. Nothing is produced until
// the consumer pulls.
type RasterQueryProcessor[P raster.Pixel] interface {
	RasterQuery(
		ctx context.Context,
		query primitives.RasterQueryRectangle,
	) (iter.Seq2[raster.Tile2D[P], error], error)
}

// VectorQueryProcessor answers vector queries with a lazy stream of
// feature batches.
type VectorQueryProcessor interface {
	VectorQuery(
		ctx context.Context,
		query primitives.VectorQueryRectangle,
	) (iter.Seq2[FeatureCollection, error], error)
}

// TypedRasterQueryProcessor carries exactly one processor, in the field
// matching DataType. The variants are closed: one per pixel type, nothing
// else. Consumers either dispatch on DataType or fail with
// UnsupportedDataTypeError.
type TypedRasterQueryProcessor struct {
	DataType raster.DataType

	U8  RasterQueryProcessor[uint8]
	U16 RasterQueryProcessor[uint16]
	U32 RasterQueryProcessor[uint32]
	I8  RasterQueryProcessor[int8]
	I16 RasterQueryProcessor[int16]
	I32 RasterQueryProcessor[int32]
	F32 RasterQueryProcessor[float32]
	F64 RasterQueryProcessor[float64]
}

// NewTypedRasterProcessor wraps a concrete processor into the variant
// matching its pixel type.
func NewTypedRasterProcessor[P raster.Pixel](p RasterQueryProcessor[P]) TypedRasterQueryProcessor {
	typed := TypedRasterQueryProcessor{DataType: raster.TypeOf[P]()}
	switch p := any(p).(type) {
	case RasterQueryProcessor[uint8]:
		typed.U8 = p
	case RasterQueryProcessor[uint16]:
		typed.U16 = p
	case RasterQueryProcessor[uint32]:
		typed.U32 = p
	case RasterQueryProcessor[int8]:
		typed.I8 = p
	case RasterQueryProcessor[int16]:
		typed.I16 = p
	case RasterQueryProcessor[int32]:
		typed.I32 = p
	case RasterQueryProcessor[float32]:
		typed.F32 = p
	case RasterQueryProcessor[float64]:
		typed.F64 = p
	}
	return typed
}

// GetU8 returns the uint8 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetU8() (RasterQueryProcessor[uint8], error) {
	if t.U8 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.U8, nil
}

// GetU16 returns the uint16 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetU16() (RasterQueryProcessor[uint16], error) {
	if t.U16 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.U16, nil
}

// GetU32 returns the uint32 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetU32() (RasterQueryProcessor[uint32], error) {
	if t.U32 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.U32, nil
}

// GetI8 returns the int8 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetI8() (RasterQueryProcessor[int8], error) {
	if t.I8 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.I8, nil
}

// GetI16 returns the int16 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetI16() (RasterQueryProcessor[int16], error) {
	if t.I16 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.I16, nil
}

// GetI32 returns the int32 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetI32() (RasterQueryProcessor[int32], error) {
	if t.I32 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.I32, nil
}

// GetF32 returns the float32 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetF32() (RasterQueryProcessor[float32], error) {
	if t.F32 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.F32, nil
}

// GetF64 returns the float64 processor or an UnsupportedDataTypeError.
func (t TypedRasterQueryProcessor) GetF64() (RasterQueryProcessor[float64], error) {
	if t.F64 == nil {
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
	return t.F64, nil
}

// QueryF64 runs the query on whichever variant is set and converts the
// resulting tiles to float64. Sinks that operate on one numeric type use
// this instead of dispatching themselves.
func (t TypedRasterQueryProcessor) QueryF64(
	ctx context.Context,
	query primitives.RasterQueryRectangle,
) (iter.Seq2[raster.Tile2D[float64], error], error) {
	switch t.DataType {
	case raster.U8:
		return queryConverted(ctx, t.U8, query)
	case raster.U16:
		return queryConverted(ctx, t.U16, query)
	case raster.U32:
		return queryConverted(ctx, t.U32, query)
	case raster.I8:
		return queryConverted(ctx, t.I8, query)
	case raster.I16:
		return queryConverted(ctx, t.I16, query)
	case raster.I32:
		return queryConverted(ctx, t.I32, query)
	case raster.F32:
		return queryConverted(ctx, t.F32, query)
	case raster.F64:
		return t.F64.RasterQuery(ctx, query)
	default:
		return nil, &UnsupportedDataTypeError{DataType: t.DataType}
	}
}

func queryConverted[P raster.Pixel](
	ctx context.Context,
	p RasterQueryProcessor[P],
	query primitives.RasterQueryRectangle,
) (iter.Seq2[raster.Tile2D[float64], error], error) {
	if p == nil {
		return nil, &UnsupportedDataTypeError{DataType: raster.TypeOf[P]()}
	}
	tiles, err := p.RasterQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return func(yield func(raster.Tile2D[float64], error) bool) {
		for tile, err := range tiles {
			if err != nil {
				yield(raster.Tile2D[float64]{}, err)
				return
			}
			if !yield(raster.ConvertTile[P, float64](tile), nil) {
				return
			}
		}
	}, nil
}

// TypedVectorQueryProcessor pairs a vector processor with its geometry
// kind.
type TypedVectorQueryProcessor struct {
	DataType  VectorDataType
	Processor VectorQueryProcessor
}
