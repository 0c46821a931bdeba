package raster

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

// GeoTransform maps 2D grid indices onto CRS coordinates. The origin is
// the upper-left corner of pixel [0, 0]; XPixelSize is positive and
// YPixelSize negative for north-up rasters.
type GeoTransform struct {
	OriginCoordinate primitives.Coordinate2D `json:"originCoordinate"`
	XPixelSize       float64                 `json:"xPixelSize"`
	YPixelSize       float64                 `json:"yPixelSize"`
}

// NewGeoTransform validates the pixel sizes.
func NewGeoTransform(origin primitives.Coordinate2D, xPixelSize, yPixelSize float64) (GeoTransform, error) {
	if xPixelSize <= 0 || yPixelSize >= 0 {
		return GeoTransform{}, eris.Errorf(
			"geo transform pixel sizes must be (+x, -y), got (%g, %g)", xPixelSize, yPixelSize)
	}
	return GeoTransform{OriginCoordinate: origin, XPixelSize: xPixelSize, YPixelSize: yPixelSize}, nil
}

// GeoTransformFromArray builds a transform from the 6-element affine form
// [originX, xSize, 0, originY, 0, ySize] used by catalog metadata. The two
// rotation terms must be zero.
func GeoTransformFromArray(a [6]float64) (GeoTransform, error) {
	if a[2] != 0 || a[4] != 0 {
		return GeoTransform{}, eris.New("rotated geo transforms are not supported")
	}
	return NewGeoTransform(primitives.Coordinate2D{X: a[0], Y: a[3]}, a[1], a[5])
}

// IdxToCoordinateUpperLeft returns the upper-left corner of pixel [y, x].
func (t GeoTransform) IdxToCoordinateUpperLeft(idx GridIdx) primitives.Coordinate2D {
	return primitives.Coordinate2D{
		X: t.OriginCoordinate.X + float64(idx[1])*t.XPixelSize,
		Y: t.OriginCoordinate.Y + float64(idx[0])*t.YPixelSize,
	}
}

// CoordinateToIdx returns the pixel [y, x] containing the coordinate.
func (t GeoTransform) CoordinateToIdx(c primitives.Coordinate2D) GridIdx {
	x := int(math.Floor((c.X - t.OriginCoordinate.X) / t.XPixelSize))
	y := int(math.Floor((c.Y - t.OriginCoordinate.Y) / t.YPixelSize))
	return Idx(y, x)
}

// PixelBoundsOf returns the pixel index range covering the partition.
// The upper/left borders round down, the lower/right borders are exclusive.
func (t GeoTransform) PixelBoundsOf(p primitives.SpatialPartition2D) (GridBoundingBox, error) {
	upperLeft := t.CoordinateToIdx(p.UpperLeft)
	cols := int(math.Ceil(p.SizeX() / t.XPixelSize))
	rows := int(math.Ceil(p.SizeY() / -t.YPixelSize))
	if cols < 1 || rows < 1 {
		return GridBoundingBox{}, eris.Errorf("partition %s is smaller than one pixel", p)
	}
	return NewGridBoundingBox(upperLeft, upperLeft.Add(Idx(rows-1, cols-1)))
}
