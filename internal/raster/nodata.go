package raster

// NoDataGrid is a zero-storage virtual grid: every in-bounds read yields
// the same no-data value. It represents whole-tile "missing" regions
// without allocating a buffer and behaves exactly like a dense grid filled
// with its sentinel.
type NoDataGrid[T Pixel] struct {
	Bounds GridBoundingBox `json:"bounds"`
	NoData T               `json:"noDataValue"`
}

// NewNoDataGrid creates a virtual grid over the bounds.
func NewNoDataGrid[T Pixel](bounds GridBoundingBox, noData T) NoDataGrid[T] {
	return NoDataGrid[T]{Bounds: bounds, NoData: noData}
}

// GridBounds returns the index range of the grid.
func (g NoDataGrid[T]) GridBounds() GridBoundingBox { return g.Bounds }

// NumberOfElements returns the virtual cell count.
func (g NoDataGrid[T]) NumberOfElements() int { return g.Bounds.NumberOfElements() }

// At returns the no-data value for any contained index and fails with
// *OutOfBoundsError outside the bounds, exactly like a dense grid.
func (g NoDataGrid[T]) At(idx GridIdx) (T, error) {
	if !g.Bounds.Contains(idx) {
		var zero T
		return zero, &OutOfBoundsError{Index: idx.Clone(), Min: g.Bounds.Min.Clone(), Max: g.Bounds.Max.Clone()}
	}
	return g.NoData, nil
}

// AtUnchecked returns the no-data value regardless of the index.
func (g NoDataGrid[T]) AtUnchecked(GridIdx) T { return g.NoData }

// NoDataValue returns the sentinel; it is always set.
func (g NoDataGrid[T]) NoDataValue() (T, bool) { return g.NoData, true }

// ShiftByOffset translates the bounding box, keeping the sentinel.
func (g NoDataGrid[T]) ShiftByOffset(offset GridIdx) NoDataGrid[T] {
	return NoDataGrid[T]{Bounds: g.Bounds.ShiftByOffset(offset), NoData: g.NoData}
}

// WithBounds re-bases onto arbitrary bounds of matching dimensionality.
func (g NoDataGrid[T]) WithBounds(bounds GridBoundingBox) NoDataGrid[T] {
	return NoDataGrid[T]{Bounds: bounds, NoData: g.NoData}
}

// Materialize converts into a dense grid filled with the sentinel. The
// round trip preserves no-data semantics: every cell equals the sentinel
// and the dense grid's own sentinel is the same value.
func (g NoDataGrid[T]) Materialize() Grid[T] {
	noData := g.NoData
	return NewFilledGrid(g.Bounds, g.NoData, &noData)
}

// ConvertNoDataGrid widens the sentinel to another pixel type. The
// conversion is value-preserving for integer-representable sentinels.
func ConvertNoDataGrid[From, To Pixel](g NoDataGrid[From]) NoDataGrid[To] {
	return NoDataGrid[To]{Bounds: g.Bounds, NoData: To(g.NoData)}
}
