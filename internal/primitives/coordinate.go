package primitives

import "fmt"

// Coordinate2D is a position in some spatial reference system.
// The axis meaning (lon/lat vs. easting/northing) is defined by the CRS of
// the surrounding geometry, not by this type.
type Coordinate2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c Coordinate2D) String() string {
	return fmt.Sprintf("(%g, %g)", c.X, c.Y)
}

// MinElements returns the component-wise minimum of two coordinates.
func (c Coordinate2D) MinElements(o Coordinate2D) Coordinate2D {
	return Coordinate2D{X: min(c.X, o.X), Y: min(c.Y, o.Y)}
}

// MaxElements returns the component-wise maximum of two coordinates.
func (c Coordinate2D) MaxElements(o Coordinate2D) Coordinate2D {
	return Coordinate2D{X: max(c.X, o.X), Y: max(c.Y, o.Y)}
}
