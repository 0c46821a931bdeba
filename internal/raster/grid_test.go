package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shape(t *testing.T, sizes ...int) GridBoundingBox {
	t.Helper()
	b, err := GridShape(sizes...)
	require.NoError(t, err)
	return b
}

func TestGridShape_AxisArithmetic(t *testing.T) {
	b := shape(t, 2, 3)
	assert.Equal(t, 2, b.Dims())
	assert.Equal(t, []int{2, 3}, b.AxisSizes())
	assert.Equal(t, 6, b.NumberOfElements())

	b3 := shape(t, 2, 3, 4)
	assert.Equal(t, 3, b3.Dims())
	assert.Equal(t, 24, b3.NumberOfElements())

	b1 := shape(t, 5)
	assert.Equal(t, 1, b1.Dims())
	assert.Equal(t, 5, b1.NumberOfElements())
}

func TestGridShape_RejectsBadAxes(t *testing.T) {
	_, err := GridShape(0, 3)
	require.Error(t, err)
	_, err = GridShape(1, 2, 3, 4)
	require.Error(t, err)
	_, err = NewGridBoundingBox(Idx(2, 2), Idx(1, 5))
	require.Error(t, err)
	_, err = NewGridBoundingBox(Idx(0), Idx(1, 1))
	require.Error(t, err)
}

func TestGridBoundingBox_LinearIndexIsRowMajor(t *testing.T) {
	b := shape(t, 2, 3)

	linear, err := b.LinearIndex(Idx(0, 0))
	require.NoError(t, err)
	assert.Equal(t, 0, linear)

	linear, err = b.LinearIndex(Idx(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 5, linear)

	// Negative-anchored bounds map their minimum onto offset zero.
	negative, err := NewGridBoundingBox(Idx(-2, -1), Idx(-1, 1))
	require.NoError(t, err)
	linear, err = negative.LinearIndex(Idx(-2, -1))
	require.NoError(t, err)
	assert.Equal(t, 0, linear)
	linear, err = negative.LinearIndex(Idx(-1, 1))
	require.NoError(t, err)
	assert.Equal(t, negative.NumberOfElements()-1, linear)
}

func TestGrid_CheckedAccess(t *testing.T) {
	g, err := NewGrid(shape(t, 2, 2), []int32{1, 2, 3, 4}, nil)
	require.NoError(t, err)

	v, err := g.At(Idx(1, 0))
	require.NoError(t, err)
	assert.Equal(t, int32(3), v)

	_, err = g.At(Idx(100, 100))
	var oob *OutOfBoundsError
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, Idx(100, 100), oob.Index)
	assert.Equal(t, Idx(0, 0), oob.Min)
	assert.Equal(t, Idx(1, 1), oob.Max)

	require.NoError(t, g.Set(Idx(0, 1), 42))
	assert.Equal(t, int32(42), g.AtUnchecked(Idx(0, 1)))
	require.Error(t, g.Set(Idx(-1, 0), 7))
}

func TestNewGrid_RejectsLengthMismatch(t *testing.T) {
	_, err := NewGrid(shape(t, 2, 2), []uint8{1, 2, 3}, nil)
	require.Error(t, err)
}

func TestGrid_ShiftByOffsetKeepsContents(t *testing.T) {
	noData := uint16(0)
	g, err := NewGrid(shape(t, 2, 2), []uint16{1, 2, 3, 4}, &noData)
	require.NoError(t, err)

	shifted := g.ShiftByOffset(Idx(10, -5))
	assert.Equal(t, Idx(10, -5), shifted.Bounds.Min)
	assert.Equal(t, Idx(11, -4), shifted.Bounds.Max)

	v, err := shifted.At(Idx(10, -5))
	require.NoError(t, err)
	assert.Equal(t, uint16(1), v)
	v, err = shifted.At(Idx(11, -4))
	require.NoError(t, err)
	assert.Equal(t, uint16(4), v)

	// Contents and sentinel are untouched; only the frame moved.
	assert.Equal(t, g.Data, shifted.Data)
	nd, ok := shifted.NoDataValue()
	assert.True(t, ok)
	assert.Equal(t, uint16(0), nd)

	_, err = shifted.At(Idx(0, 0))
	require.Error(t, err)
}

func TestGrid_WithBounds(t *testing.T) {
	g, err := NewGrid(shape(t, 2, 2), []float32{1, 2, 3, 4}, nil)
	require.NoError(t, err)

	rebased, err := NewGridBoundingBox(Idx(5, 5), Idx(6, 6))
	require.NoError(t, err)
	moved, err := g.WithBounds(rebased)
	require.NoError(t, err)
	v, err := moved.At(Idx(6, 6))
	require.NoError(t, err)
	assert.Equal(t, float32(4), v)

	wrongSize, err := NewGridBoundingBox(Idx(0, 0), Idx(2, 2))
	require.NoError(t, err)
	_, err = g.WithBounds(wrongSize)
	require.Error(t, err)

	wrongDims, err := NewGridBoundingBox(Idx(0), Idx(3))
	require.NoError(t, err)
	_, err = g.WithBounds(wrongDims)
	require.Error(t, err)
}

func TestConvertGrid_WidensSentinel(t *testing.T) {
	noData := uint8(255)
	g, err := NewGrid(shape(t, 1, 3), []uint8{1, 255, 3}, &noData)
	require.NoError(t, err)

	converted := ConvertGrid[uint8, float64](g)
	assert.Equal(t, []float64{1, 255, 3}, converted.Data)
	nd, ok := converted.NoDataValue()
	require.True(t, ok)
	assert.Equal(t, float64(255), nd)
	assert.True(t, converted.IsNoData(255))
}
