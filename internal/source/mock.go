package source

import (
	"context"
	"iter"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// MockRasterSource serves a fixed tile list, filtered by query time. Used
// to drive operators in tests without catalog or asset plumbing.
type MockRasterSource[P raster.Pixel] struct {
	Descriptor engine.RasterResultDescriptor
	Tiles      []raster.Tile2D[P]
}

func (s *MockRasterSource[P]) Initialize(
	_ context.Context,
	_ engine.ExecutionContext,
) (engine.InitializedRasterOperator, error) {
	if s.Descriptor.DataType != raster.TypeOf[P]() {
		return nil, &engine.InvalidTypeError{
			Expected: raster.TypeOf[P]().String(),
			Found:    s.Descriptor.DataType.String(),
		}
	}
	return &initializedMockRasterSource[P]{source: s}, nil
}

type initializedMockRasterSource[P raster.Pixel] struct {
	source *MockRasterSource[P]
}

func (s *initializedMockRasterSource[P]) ResultDescriptor() engine.RasterResultDescriptor {
	return s.source.Descriptor
}

func (s *initializedMockRasterSource[P]) QueryProcessor() (engine.TypedRasterQueryProcessor, error) {
	return engine.NewTypedRasterProcessor[P](mockRasterProcessor[P]{tiles: s.source.Tiles}), nil
}

type mockRasterProcessor[P raster.Pixel] struct {
	tiles []raster.Tile2D[P]
}

func (p mockRasterProcessor[P]) RasterQuery(
	_ context.Context,
	query primitives.RasterQueryRectangle,
) (iter.Seq2[raster.Tile2D[P], error], error) {
	return func(yield func(raster.Tile2D[P], error) bool) {
		for _, tile := range p.tiles {
			if !tile.Time.Intersects(query.TimeInterval) {
				continue
			}
			if !yield(tile, nil) {
				return
			}
		}
	}, nil
}

// MockVectorSource serves fixed feature batches.
type MockVectorSource struct {
	Descriptor  engine.VectorResultDescriptor
	Collections []engine.FeatureCollection
}

func (s *MockVectorSource) Initialize(
	_ context.Context,
	_ engine.ExecutionContext,
) (engine.InitializedVectorOperator, error) {
	return &initializedMockVectorSource{source: s}, nil
}

type initializedMockVectorSource struct {
	source *MockVectorSource
}

func (s *initializedMockVectorSource) ResultDescriptor() engine.VectorResultDescriptor {
	return s.source.Descriptor
}

func (s *initializedMockVectorSource) QueryProcessor() (engine.TypedVectorQueryProcessor, error) {
	return engine.TypedVectorQueryProcessor{
		DataType:  s.source.Descriptor.DataType,
		Processor: mockVectorProcessor{collections: s.source.Collections},
	}, nil
}

type mockVectorProcessor struct {
	collections []engine.FeatureCollection
}

func (p mockVectorProcessor) VectorQuery(
	_ context.Context,
	_ primitives.VectorQueryRectangle,
) (iter.Seq2[engine.FeatureCollection, error], error) {
	return func(yield func(engine.FeatureCollection, error) bool) {
		for _, fc := range p.collections {
			if !yield(fc, nil) {
				return
			}
		}
	}, nil
}
