package raster

import "github.com/rotisserie/eris"

// IndexedGrid is the read access shared by dense and virtual grids. A
// NoDataGrid must be observably identical to a dense grid filled with its
// sentinel, so both satisfy this interface.
type IndexedGrid[T Pixel] interface {
	GridBounds() GridBoundingBox
	// At fails with *OutOfBoundsError outside the bounds.
	At(idx GridIdx) (T, error)
	// AtUnchecked returns meaningless data for out-of-bounds indices; the
	// caller contracts to have validated the index.
	AtUnchecked(idx GridIdx) T
	// NoDataValue returns the sentinel and whether one is set.
	NoDataValue() (T, bool)
}

// Grid is a dense n-dimensional pixel buffer with an optional no-data
// sentinel.
type Grid[T Pixel] struct {
	Bounds GridBoundingBox `json:"bounds"`
	Data   []T             `json:"data"`
	NoData *T              `json:"noDataValue,omitempty"`
}

// NewGrid validates that the buffer length matches the bounds.
func NewGrid[T Pixel](bounds GridBoundingBox, data []T, noData *T) (Grid[T], error) {
	if len(data) != bounds.NumberOfElements() {
		return Grid[T]{}, eris.Errorf(
			"grid data length %d does not match bounds %s with %d elements",
			len(data), bounds, bounds.NumberOfElements())
	}
	return Grid[T]{Bounds: bounds, Data: data, NoData: noData}, nil
}

// NewFilledGrid allocates a grid with every cell set to fill.
func NewFilledGrid[T Pixel](bounds GridBoundingBox, fill T, noData *T) Grid[T] {
	data := make([]T, bounds.NumberOfElements())
	for i := range data {
		data[i] = fill
	}
	return Grid[T]{Bounds: bounds, Data: data, NoData: noData}
}

// GridBounds returns the index range of the grid.
func (g Grid[T]) GridBounds() GridBoundingBox { return g.Bounds }

// NumberOfElements returns the buffer length.
func (g Grid[T]) NumberOfElements() int { return len(g.Data) }

// At returns the value at idx, failing with *OutOfBoundsError outside the
// bounds.
func (g Grid[T]) At(idx GridIdx) (T, error) {
	linear, err := g.Bounds.LinearIndex(idx)
	if err != nil {
		var zero T
		return zero, err
	}
	return g.Data[linear], nil
}

// AtUnchecked reads without bounds validation.
func (g Grid[T]) AtUnchecked(idx GridIdx) T {
	return g.Data[g.Bounds.linearIndexUnchecked(idx)]
}

// Set writes the value at idx, failing with *OutOfBoundsError outside the
// bounds.
func (g Grid[T]) Set(idx GridIdx, value T) error {
	linear, err := g.Bounds.LinearIndex(idx)
	if err != nil {
		return err
	}
	g.Data[linear] = value
	return nil
}

// SetUnchecked writes without bounds validation.
func (g Grid[T]) SetUnchecked(idx GridIdx, value T) {
	g.Data[g.Bounds.linearIndexUnchecked(idx)] = value
}

// NoDataValue returns the sentinel and whether one is set.
func (g Grid[T]) NoDataValue() (T, bool) {
	if g.NoData == nil {
		var zero T
		return zero, false
	}
	return *g.NoData, true
}

// IsNoData reports whether the value equals the sentinel.
func (g Grid[T]) IsNoData(value T) bool {
	return g.NoData != nil && *g.NoData == value
}

// ShiftByOffset translates the grid's bounding box, leaving contents and
// sentinel untouched. Only the coordinate frame changes.
func (g Grid[T]) ShiftByOffset(offset GridIdx) Grid[T] {
	return Grid[T]{Bounds: g.Bounds.ShiftByOffset(offset), Data: g.Data, NoData: g.NoData}
}

// WithBounds re-bases the grid onto arbitrary bounds of the same shape.
// Used when composing tiles of differing extents.
func (g Grid[T]) WithBounds(bounds GridBoundingBox) (Grid[T], error) {
	if bounds.Dims() != g.Bounds.Dims() {
		return Grid[T]{}, eris.Errorf(
			"cannot re-base %d-dimensional grid onto %d-dimensional bounds",
			g.Bounds.Dims(), bounds.Dims())
	}
	if bounds.NumberOfElements() != len(g.Data) {
		return Grid[T]{}, eris.Errorf(
			"new bounds %s hold %d elements, grid has %d",
			bounds, bounds.NumberOfElements(), len(g.Data))
	}
	return Grid[T]{Bounds: bounds, Data: g.Data, NoData: g.NoData}, nil
}

// ConvertGrid converts the pixel type cell-wise. Conversions must be
// widening to preserve values; narrowing silently truncates like any Go
// numeric conversion, so callers pick the target type accordingly.
func ConvertGrid[From, To Pixel](g Grid[From]) Grid[To] {
	data := make([]To, len(g.Data))
	for i, v := range g.Data {
		data[i] = To(v)
	}
	var noData *To
	if g.NoData != nil {
		converted := To(*g.NoData)
		noData = &converted
	}
	return Grid[To]{Bounds: g.Bounds, Data: data, NoData: noData}
}
