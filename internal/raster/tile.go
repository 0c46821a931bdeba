package raster

import (
	"math"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

// Tile2D is one bounded spatial and temporal slice of a raster result, the
// unit of lazy production. Its grid is either dense or a virtual no-data
// grid for wholly missing regions.
type Tile2D[T Pixel] struct {
	Time         primitives.TimeInterval
	TilePosition GridIdx // [row, col] of the tile in the query tiling
	GeoTransform GeoTransform
	Grid         IndexedGrid[T]
}

// SpatialPartition returns the area the tile covers.
func (t Tile2D[T]) SpatialPartition() primitives.SpatialPartition2D {
	bounds := t.Grid.GridBounds()
	sizes := bounds.AxisSizes()
	upperLeft := t.GeoTransform.IdxToCoordinateUpperLeft(bounds.Min)
	return primitives.SpatialPartition2D{
		UpperLeft: upperLeft,
		LowerRight: primitives.Coordinate2D{
			X: upperLeft.X + float64(sizes[1])*t.GeoTransform.XPixelSize,
			Y: upperLeft.Y + float64(sizes[0])*t.GeoTransform.YPixelSize,
		},
	}
}

// TilingStrategy slices a query window into fixed-size tiles anchored at
// the window's upper-left corner.
type TilingStrategy struct {
	TileRows     int
	TileCols     int
	GeoTransform GeoTransform
}

// DefaultTileSize is the edge length of produced tiles, in pixels.
const DefaultTileSize = 512

// NewTilingStrategy derives the tiling for a query window: the geo
// transform is anchored at the window's upper-left corner with pixel sizes
// from the requested resolution.
func NewTilingStrategy(bounds primitives.SpatialPartition2D, resolution primitives.SpatialResolution) TilingStrategy {
	return TilingStrategy{
		TileRows: DefaultTileSize,
		TileCols: DefaultTileSize,
		GeoTransform: GeoTransform{
			OriginCoordinate: bounds.UpperLeft,
			XPixelSize:       resolution.X,
			YPixelSize:       -resolution.Y,
		},
	}
}

// TileGridBounds returns the tile-index range covering the partition.
func (s TilingStrategy) TileGridBounds(p primitives.SpatialPartition2D) (GridBoundingBox, error) {
	pixels, err := s.GeoTransform.PixelBoundsOf(p)
	if err != nil {
		return GridBoundingBox{}, err
	}
	sizes := pixels.AxisSizes()
	tileRows := int(math.Ceil(float64(sizes[0]) / float64(s.TileRows)))
	tileCols := int(math.Ceil(float64(sizes[1]) / float64(s.TileCols)))
	return GridShape(tileRows, tileCols)
}

// TilePixelBounds returns the global pixel bounds of one tile.
func (s TilingStrategy) TilePixelBounds(tile GridIdx) GridBoundingBox {
	minIdx := Idx(tile[0]*s.TileRows, tile[1]*s.TileCols)
	bounds, _ := NewGridBoundingBox(minIdx, minIdx.Add(Idx(s.TileRows-1, s.TileCols-1)))
	return bounds
}

// TileSpatialPartition returns the area one tile covers.
func (s TilingStrategy) TileSpatialPartition(tile GridIdx) primitives.SpatialPartition2D {
	pixels := s.TilePixelBounds(tile)
	upperLeft := s.GeoTransform.IdxToCoordinateUpperLeft(pixels.Min)
	return primitives.SpatialPartition2D{
		UpperLeft: upperLeft,
		LowerRight: primitives.Coordinate2D{
			X: upperLeft.X + float64(s.TileCols)*s.GeoTransform.XPixelSize,
			Y: upperLeft.Y + float64(s.TileRows)*s.GeoTransform.YPixelSize,
		},
	}
}
