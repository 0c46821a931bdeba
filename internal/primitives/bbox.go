package primitives

import (
	"fmt"

	"github.com/rotisserie/eris"
)

// BoundingBox2D is an axis-aligned rectangle spanned by its lower-left and
// upper-right corners, with the y axis pointing up.
type BoundingBox2D struct {
	LowerLeft  Coordinate2D `json:"lowerLeftCoordinate"`
	UpperRight Coordinate2D `json:"upperRightCoordinate"`
}

// NewBoundingBox2D validates that the corners span a non-degenerate box.
func NewBoundingBox2D(lowerLeft, upperRight Coordinate2D) (BoundingBox2D, error) {
	if lowerLeft.X >= upperRight.X || lowerLeft.Y >= upperRight.Y {
		return BoundingBox2D{}, eris.Errorf(
			"bounding box corners out of order: lower left %s, upper right %s",
			lowerLeft, upperRight,
		)
	}
	return BoundingBox2D{LowerLeft: lowerLeft, UpperRight: upperRight}, nil
}

func (b BoundingBox2D) String() string {
	return fmt.Sprintf("[%s, %s]", b.LowerLeft, b.UpperRight)
}

// SizeX returns the horizontal extent.
func (b BoundingBox2D) SizeX() float64 { return b.UpperRight.X - b.LowerLeft.X }

// SizeY returns the vertical extent.
func (b BoundingBox2D) SizeY() float64 { return b.UpperRight.Y - b.LowerLeft.Y }

// Contains reports whether the coordinate lies inside the box (borders included).
func (b BoundingBox2D) Contains(c Coordinate2D) bool {
	return c.X >= b.LowerLeft.X && c.X <= b.UpperRight.X &&
		c.Y >= b.LowerLeft.Y && c.Y <= b.UpperRight.Y
}

// Intersects reports whether the two boxes share any area.
func (b BoundingBox2D) Intersects(o BoundingBox2D) bool {
	return b.LowerLeft.X < o.UpperRight.X && o.LowerLeft.X < b.UpperRight.X &&
		b.LowerLeft.Y < o.UpperRight.Y && o.LowerLeft.Y < b.UpperRight.Y
}

// Intersection clips the box against another. Returns false when they are disjoint.
func (b BoundingBox2D) Intersection(o BoundingBox2D) (BoundingBox2D, bool) {
	if !b.Intersects(o) {
		return BoundingBox2D{}, false
	}
	return BoundingBox2D{
		LowerLeft:  b.LowerLeft.MaxElements(o.LowerLeft),
		UpperRight: b.UpperRight.MinElements(o.UpperRight),
	}, true
}

// SpatialPartition2D is an axis-aligned rectangle spanned by its upper-left
// and lower-right corners. It is the raster-space counterpart of
// BoundingBox2D: pixels grow to the right and downwards from the upper-left
// corner, and the upper and left borders belong to the partition while the
// lower and right borders do not.
type SpatialPartition2D struct {
	UpperLeft  Coordinate2D `json:"upperLeftCoordinate"`
	LowerRight Coordinate2D `json:"lowerRightCoordinate"`
}

// NewSpatialPartition2D validates that the corners span a non-degenerate partition.
func NewSpatialPartition2D(upperLeft, lowerRight Coordinate2D) (SpatialPartition2D, error) {
	if upperLeft.X >= lowerRight.X || upperLeft.Y <= lowerRight.Y {
		return SpatialPartition2D{}, eris.Errorf(
			"spatial partition corners out of order: upper left %s, lower right %s",
			upperLeft, lowerRight,
		)
	}
	return SpatialPartition2D{UpperLeft: upperLeft, LowerRight: lowerRight}, nil
}

func (p SpatialPartition2D) String() string {
	return fmt.Sprintf("[%s, %s]", p.UpperLeft, p.LowerRight)
}

// SizeX returns the horizontal extent.
func (p SpatialPartition2D) SizeX() float64 { return p.LowerRight.X - p.UpperLeft.X }

// SizeY returns the vertical extent.
func (p SpatialPartition2D) SizeY() float64 { return p.UpperLeft.Y - p.LowerRight.Y }

// LowerLeft returns the lower-left corner.
func (p SpatialPartition2D) LowerLeft() Coordinate2D {
	return Coordinate2D{X: p.UpperLeft.X, Y: p.LowerRight.Y}
}

// UpperRight returns the upper-right corner.
func (p SpatialPartition2D) UpperRight() Coordinate2D {
	return Coordinate2D{X: p.LowerRight.X, Y: p.UpperLeft.Y}
}

// Contains reports whether the coordinate lies inside the partition,
// honoring the half-open borders.
func (p SpatialPartition2D) Contains(c Coordinate2D) bool {
	return c.X >= p.UpperLeft.X && c.X < p.LowerRight.X &&
		c.Y > p.LowerRight.Y && c.Y <= p.UpperLeft.Y
}

// Intersects reports whether the two partitions share any area.
func (p SpatialPartition2D) Intersects(o SpatialPartition2D) bool {
	return p.UpperLeft.X < o.LowerRight.X && o.UpperLeft.X < p.LowerRight.X &&
		p.LowerRight.Y < o.UpperLeft.Y && o.LowerRight.Y < p.UpperLeft.Y
}

// AsBoundingBox converts the partition into its lower-left/upper-right form.
func (p SpatialPartition2D) AsBoundingBox() BoundingBox2D {
	return BoundingBox2D{LowerLeft: p.LowerLeft(), UpperRight: p.UpperRight()}
}

// PartitionFromBoundingBox converts a bounding box into its
// upper-left/lower-right form.
func PartitionFromBoundingBox(b BoundingBox2D) SpatialPartition2D {
	return SpatialPartition2D{
		UpperLeft:  Coordinate2D{X: b.LowerLeft.X, Y: b.UpperRight.Y},
		LowerRight: Coordinate2D{X: b.UpperRight.X, Y: b.LowerLeft.Y},
	}
}
