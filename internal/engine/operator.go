package engine

import "context"

// RasterOperator is one node of a workflow graph producing raster data.
// Initialization resolves metadata, validates the graph below the node and
// fixes the result descriptor. Initialize must be side-effect free so a
// graph can be initialized repeatedly with identical results.
type RasterOperator interface {
	Initialize(ctx context.Context, execCtx ExecutionContext) (InitializedRasterOperator, error)
}

// VectorOperator is one node of a workflow graph producing vector data.
type VectorOperator interface {
	Initialize(ctx context.Context, execCtx ExecutionContext) (InitializedVectorOperator, error)
}

// InitializedRasterOperator exposes the fixed result contract and builds
// the typed processor that executes queries.
type InitializedRasterOperator interface {
	ResultDescriptor() RasterResultDescriptor
	QueryProcessor() (TypedRasterQueryProcessor, error)
}

// InitializedVectorOperator exposes the fixed result contract and builds
// the typed processor that executes queries.
type InitializedVectorOperator interface {
	ResultDescriptor() VectorResultDescriptor
	QueryProcessor() (TypedVectorQueryProcessor, error)
}
