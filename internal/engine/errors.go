package engine

import (
	"fmt"

	"github.com/geoengine-bot/geoengine/internal/raster"
)

// InvalidNumberOfInputsError reports a source arity outside an operator's
// declared range.
type InvalidNumberOfInputsError struct {
	ExpectedMin int
	ExpectedMax int
	Found       int
}

func (e *InvalidNumberOfInputsError) Error() string {
	return fmt.Sprintf("invalid number of inputs: expected %d..=%d, found %d",
		e.ExpectedMin, e.ExpectedMax, e.Found)
}

// InvalidOperatorSpecError reports a structural mismatch in operator
// parameters.
type InvalidOperatorSpecError struct {
	Reason string
}

func (e *InvalidOperatorSpecError) Error() string {
	return "invalid operator spec: " + e.Reason
}

// InvalidTypeError reports an upstream result type the operator cannot
// consume.
type InvalidTypeError struct {
	Expected string
	Found    string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("invalid type: expected %s, found %s", e.Expected, e.Found)
}

// UnsupportedDataTypeError reports a processor pixel type a sink cannot
// handle.
type UnsupportedDataTypeError struct {
	DataType raster.DataType
}

func (e *UnsupportedDataTypeError) Error() string {
	return fmt.Sprintf("unsupported raster data type %s", e.DataType)
}

// MissingSpatialReferenceError reports a descriptor without a CRS where one
// is required.
type MissingSpatialReferenceError struct{}

func (e *MissingSpatialReferenceError) Error() string {
	return "result descriptor carries no spatial reference"
}

// InvalidSpatialReferenceError reports a CRS that cannot be used where it
// appears.
type InvalidSpatialReferenceError struct {
	SpatialReference string
	Reason           string
}

func (e *InvalidSpatialReferenceError) Error() string {
	return fmt.Sprintf("invalid spatial reference %s: %s", e.SpatialReference, e.Reason)
}

// UnknownDatasetError reports a dataset id the execution context cannot
// resolve.
type UnknownDatasetError struct {
	Dataset string
}

func (e *UnknownDatasetError) Error() string {
	return "unknown dataset " + e.Dataset
}

// TileLimitError reports a stream that exceeded a consumer's tile ceiling.
// The ceiling is caller policy; processors never enforce it themselves.
type TileLimitError struct {
	Limit int
}

func (e *TileLimitError) Error() string {
	return fmt.Sprintf("tile stream exceeded the limit of %d tiles", e.Limit)
}
