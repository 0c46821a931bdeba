package raster

// ConvertIndexedGrid converts any grid to another pixel type, keeping
// virtual grids virtual. Unknown implementations are materialized.
func ConvertIndexedGrid[From, To Pixel](g IndexedGrid[From]) IndexedGrid[To] {
	switch g := g.(type) {
	case Grid[From]:
		return ConvertGrid[From, To](g)
	case NoDataGrid[From]:
		return ConvertNoDataGrid[From, To](g)
	default:
		return ConvertGrid[From, To](materializeIndexed(g))
	}
}

// ConvertTile converts a tile's grid to another pixel type, keeping
// placement and validity.
func ConvertTile[From, To Pixel](t Tile2D[From]) Tile2D[To] {
	return Tile2D[To]{
		Time:         t.Time,
		TilePosition: t.TilePosition,
		GeoTransform: t.GeoTransform,
		Grid:         ConvertIndexedGrid[From, To](t.Grid),
	}
}

func materializeIndexed[T Pixel](g IndexedGrid[T]) Grid[T] {
	bounds := g.GridBounds()
	data := make([]T, 0, bounds.NumberOfElements())
	idx := bounds.Min.Clone()
	for {
		data = append(data, g.AtUnchecked(idx))
		if !advanceIdx(idx, bounds) {
			break
		}
	}
	var noData *T
	if nd, ok := g.NoDataValue(); ok {
		noData = &nd
	}
	return Grid[T]{Bounds: bounds, Data: data, NoData: noData}
}

// advanceIdx steps idx through the bounds in row-major order, last axis
// fastest. It reports whether another index remains.
func advanceIdx(idx GridIdx, bounds GridBoundingBox) bool {
	for axis := len(idx) - 1; axis >= 0; axis-- {
		if idx[axis] < bounds.Max[axis] {
			idx[axis]++
			return true
		}
		idx[axis] = bounds.Min[axis]
	}
	return false
}
