package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoDataGrid_ReturnsSentinelForEveryContainedIndex(t *testing.T) {
	g := NewNoDataGrid(shape(t, 2, 2), int32(42))

	for _, idx := range []GridIdx{Idx(0, 0), Idx(0, 1), Idx(1, 0), Idx(1, 1)} {
		v, err := g.At(idx)
		require.NoError(t, err, idx)
		assert.Equal(t, int32(42), v, idx)
	}

	for _, idx := range []GridIdx{Idx(2, 0), Idx(0, 2), Idx(-1, 0), Idx(100, 100)} {
		_, err := g.At(idx)
		var oob *OutOfBoundsError
		require.ErrorAs(t, err, &oob, idx)
		assert.Equal(t, Idx(0, 0), oob.Min)
		assert.Equal(t, Idx(1, 1), oob.Max)
	}
}

func TestNoDataGrid_UncheckedAccessAlwaysYieldsSentinel(t *testing.T) {
	g := NewNoDataGrid(shape(t, 2, 2), uint8(42))
	assert.Equal(t, uint8(42), g.AtUnchecked(Idx(0, 0)))
	assert.Equal(t, uint8(42), g.AtUnchecked(Idx(100, 100)))
}

func TestNoDataGrid_AxisSizes(t *testing.T) {
	g := NewNoDataGrid(shape(t, 2, 2), 0.0)
	assert.Equal(t, []int{2, 2}, g.GridBounds().AxisSizes())
	assert.Equal(t, 4, g.NumberOfElements())

	g3 := NewNoDataGrid(shape(t, 2, 3, 4), uint16(7))
	assert.Equal(t, 3, g3.GridBounds().Dims())
	assert.Equal(t, 24, g3.NumberOfElements())
}

func TestConvertNoDataGrid_WidensSentinelLosslessly(t *testing.T) {
	g := NewNoDataGrid(shape(t, 2, 2), uint8(42))
	converted := ConvertNoDataGrid[uint8, float64](g)
	assert.Equal(t, float64(42), converted.NoData)
	assert.Equal(t, g.Bounds, converted.Bounds)
}

func TestNoDataGrid_MaterializeRoundTrip(t *testing.T) {
	g := NewNoDataGrid(shape(t, 2, 2), int16(-999))
	dense := g.Materialize()

	assert.Equal(t, g.Bounds, dense.Bounds)
	for _, v := range dense.Data {
		assert.Equal(t, int16(-999), v)
	}
	nd, ok := dense.NoDataValue()
	require.True(t, ok)
	assert.Equal(t, int16(-999), nd)

	// The virtual and the materialized grid are observably identical.
	for _, idx := range []GridIdx{Idx(0, 0), Idx(1, 1), Idx(5, 5)} {
		gv, gErr := g.At(idx)
		dv, dErr := dense.At(idx)
		assert.Equal(t, gv, dv, idx)
		assert.Equal(t, gErr == nil, dErr == nil, idx)
	}
}

func TestNoDataGrid_ShiftAndRebase(t *testing.T) {
	g := NewNoDataGrid(shape(t, 2, 2), uint32(9))

	shifted := g.ShiftByOffset(Idx(3, 3))
	v, err := shifted.At(Idx(4, 4))
	require.NoError(t, err)
	assert.Equal(t, uint32(9), v)
	_, err = shifted.At(Idx(0, 0))
	require.Error(t, err)

	rebased := g.WithBounds(shifted.Bounds)
	assert.Equal(t, shifted, rebased)
}
