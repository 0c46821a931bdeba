package raster

import (
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
)

// GridIdx is a signed multi-index into a 1-, 2- or 3-dimensional grid.
// Axes are ordered slowest first, so a 2D index is [y, x] and a 3D index
// is [z, y, x]. A GridIdx also serves as a relative offset.
type GridIdx []int

// Idx is a convenience constructor: Idx(y, x) or Idx(z, y, x).
func Idx(components ...int) GridIdx { return GridIdx(components) }

// Dims returns the number of axes.
func (i GridIdx) Dims() int { return len(i) }

// Add returns the component-wise sum, used for shifting bounding boxes.
func (i GridIdx) Add(offset GridIdx) GridIdx {
	out := make(GridIdx, len(i))
	for d := range i {
		out[d] = i[d] + offset[d]
	}
	return out
}

// Equal reports component-wise equality.
func (i GridIdx) Equal(o GridIdx) bool { return slices.Equal(i, o) }

// Clone returns an independent copy.
func (i GridIdx) Clone() GridIdx { return slices.Clone(i) }

func (i GridIdx) String() string { return fmt.Sprint([]int(i)) }

// OutOfBoundsError reports a grid access outside [Min, Max].
type OutOfBoundsError struct {
	Index, Min, Max GridIdx
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("grid index %s out of bounds [%s, %s]", e.Index, e.Min, e.Max)
}

// GridBoundingBox is the inclusive index range [Min, Max] of a grid. The
// dimension count is fixed at construction (1, 2 or 3 axes).
type GridBoundingBox struct {
	Min GridIdx `json:"min"`
	Max GridIdx `json:"max"`
}

// NewGridBoundingBox validates dimensions and ordering.
func NewGridBoundingBox(minIdx, maxIdx GridIdx) (GridBoundingBox, error) {
	if len(minIdx) != len(maxIdx) {
		return GridBoundingBox{}, eris.Errorf(
			"grid bounds dimension mismatch: min has %d axes, max has %d", len(minIdx), len(maxIdx))
	}
	if len(minIdx) < 1 || len(minIdx) > 3 {
		return GridBoundingBox{}, eris.Errorf("grids must have 1 to 3 axes, got %d", len(minIdx))
	}
	for d := range minIdx {
		if minIdx[d] > maxIdx[d] {
			return GridBoundingBox{}, eris.Errorf(
				"degenerate grid bounds: min %s exceeds max %s on axis %d", minIdx, maxIdx, d)
		}
	}
	return GridBoundingBox{Min: minIdx.Clone(), Max: maxIdx.Clone()}, nil
}

// GridShape builds origin-anchored bounds from per-axis extents:
// GridShape(2, 3) covers [0,0]..[1,2].
func GridShape(axisSizes ...int) (GridBoundingBox, error) {
	minIdx := make(GridIdx, len(axisSizes))
	maxIdx := make(GridIdx, len(axisSizes))
	for d, size := range axisSizes {
		if size < 1 {
			return GridBoundingBox{}, eris.Errorf("axis %d has non-positive size %d", d, size)
		}
		maxIdx[d] = size - 1
	}
	return NewGridBoundingBox(minIdx, maxIdx)
}

func (b GridBoundingBox) String() string {
	return fmt.Sprintf("[%s, %s]", b.Min, b.Max)
}

// Dims returns the number of axes.
func (b GridBoundingBox) Dims() int { return len(b.Min) }

// AxisSizes returns the per-axis extents.
func (b GridBoundingBox) AxisSizes() []int {
	sizes := make([]int, len(b.Min))
	for d := range b.Min {
		sizes[d] = b.Max[d] - b.Min[d] + 1
	}
	return sizes
}

// NumberOfElements is the product of the axis sizes.
func (b GridBoundingBox) NumberOfElements() int {
	n := 1
	for _, size := range b.AxisSizes() {
		n *= size
	}
	return n
}

// Contains reports component-wise containment of the index.
func (b GridBoundingBox) Contains(idx GridIdx) bool {
	if len(idx) != len(b.Min) {
		return false
	}
	for d := range idx {
		if idx[d] < b.Min[d] || idx[d] > b.Max[d] {
			return false
		}
	}
	return true
}

// LinearIndex maps a contained multi-index onto the flat buffer offset, in
// row-major order with the last axis fastest.
func (b GridBoundingBox) LinearIndex(idx GridIdx) (int, error) {
	if !b.Contains(idx) {
		return 0, &OutOfBoundsError{Index: idx.Clone(), Min: b.Min.Clone(), Max: b.Max.Clone()}
	}
	return b.linearIndexUnchecked(idx), nil
}

func (b GridBoundingBox) linearIndexUnchecked(idx GridIdx) int {
	sizes := b.AxisSizes()
	linear := 0
	for d := range idx {
		linear = linear*sizes[d] + (idx[d] - b.Min[d])
	}
	return linear
}

// ShiftByOffset translates the bounds by a relative index.
func (b GridBoundingBox) ShiftByOffset(offset GridIdx) GridBoundingBox {
	return GridBoundingBox{Min: b.Min.Add(offset), Max: b.Max.Add(offset)}
}

// Intersection returns the overlapping index range, if any.
func (b GridBoundingBox) Intersection(o GridBoundingBox) (GridBoundingBox, bool) {
	if len(b.Min) != len(o.Min) {
		return GridBoundingBox{}, false
	}
	minIdx := make(GridIdx, len(b.Min))
	maxIdx := make(GridIdx, len(b.Min))
	for d := range b.Min {
		minIdx[d] = max(b.Min[d], o.Min[d])
		maxIdx[d] = min(b.Max[d], o.Max[d])
		if minIdx[d] > maxIdx[d] {
			return GridBoundingBox{}, false
		}
	}
	return GridBoundingBox{Min: minIdx, Max: maxIdx}, true
}
