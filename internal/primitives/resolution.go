package primitives

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// SpatialResolution is the size of one output pixel in CRS units.
type SpatialResolution struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewSpatialResolution validates that both axes are strictly positive.
func NewSpatialResolution(x, y float64) (SpatialResolution, error) {
	if x <= 0 || y <= 0 {
		return SpatialResolution{}, eris.Errorf("spatial resolution must be positive, got (%g, %g)", x, y)
	}
	return SpatialResolution{X: x, Y: y}, nil
}

// ResolutionOne is a one-unit-per-pixel resolution.
func ResolutionOne() SpatialResolution {
	return SpatialResolution{X: 1, Y: 1}
}

func (r SpatialResolution) String() string {
	return fmt.Sprintf("%gx%g", r.X, r.Y)
}
