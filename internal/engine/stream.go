package engine

import (
	"iter"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// CollectTiles drains a tile stream into a slice. A positive limit caps
// how many tiles the consumer is willing to buffer; exceeding it fails
// with TileLimitError. Zero or negative means unbounded.
func CollectTiles[P raster.Pixel](
	tiles iter.Seq2[raster.Tile2D[P], error],
	limit int,
) ([]raster.Tile2D[P], error) {
	var out []raster.Tile2D[P]
	for tile, err := range tiles {
		if err != nil {
			return nil, err
		}
		if limit > 0 && len(out) >= limit {
			return nil, &TileLimitError{Limit: limit}
		}
		out = append(out, tile)
	}
	return out, nil
}

// MosaicTiles composes the tiles of one time step into a single dense grid
// covering the query window. Pixels no tile covers hold the no-data
// sentinel. Tiles carry global pixel bounds, so placement is by index
// intersection.
func MosaicTiles[P raster.Pixel](
	tiles []raster.Tile2D[P],
	query primitives.RasterQueryRectangle,
	noData P,
) (raster.Grid[P], error) {
	if len(tiles) == 0 {
		return raster.Grid[P]{}, eris.New("cannot mosaic zero tiles")
	}
	transform := tiles[0].GeoTransform
	bounds, err := transform.PixelBoundsOf(query.SpatialBounds)
	if err != nil {
		return raster.Grid[P]{}, err
	}

	sentinel := noData
	out := raster.NewFilledGrid(bounds, noData, &sentinel)
	for _, tile := range tiles {
		overlap, ok := bounds.Intersection(tile.Grid.GridBounds())
		if !ok {
			continue
		}
		for y := overlap.Min[0]; y <= overlap.Max[0]; y++ {
			for x := overlap.Min[1]; x <= overlap.Max[1]; x++ {
				idx := raster.Idx(y, x)
				out.SetUnchecked(idx, tile.Grid.AtUnchecked(idx))
			}
		}
	}
	return out, nil
}
