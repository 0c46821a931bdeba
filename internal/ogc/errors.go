package ogc

import (
	"fmt"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// VersionNotSupportedError rejects WCS versions other than 1.1.x.
type VersionNotSupportedError struct {
	Version string
}

func (e *VersionNotSupportedError) Error() string {
	return fmt.Sprintf("wcs version %q is not supported", e.Version)
}

// MissingParameterError reports a required query parameter that was not
// sent.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// UnknownRequestError reports an unrecognized request parameter value.
type UnknownRequestError struct {
	Request string
}

func (e *UnknownRequestError) Error() string {
	return fmt.Sprintf("unknown wcs request %q", e.Request)
}

// GridOriginMismatchError is returned when the grid origin does not
// coincide with the upper-left corner of the bounding box.
type GridOriginMismatchError struct {
	Origin    primitives.Coordinate2D
	UpperLeft primitives.Coordinate2D
}

func (e *GridOriginMismatchError) Error() string {
	return fmt.Sprintf("grid origin %s must equal the bounding box upper-left corner %s",
		e.Origin, e.UpperLeft)
}

// BoundingBoxCrsMismatchError is returned when the bounding box names a
// CRS different from the grid base CRS.
type BoundingBoxCrsMismatchError struct {
	BoundingBoxCrs spatialref.SpatialReference
	GridBaseCrs    spatialref.SpatialReference
}

func (e *BoundingBoxCrsMismatchError) Error() string {
	return fmt.Sprintf("bounding box crs %s must equal the grid base crs %s",
		e.BoundingBoxCrs, e.GridBaseCrs)
}

// UnsupportedFormatError reports a format no encoder is registered for.
type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported output format %q", e.Format)
}
