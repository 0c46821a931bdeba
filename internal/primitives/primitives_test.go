package primitives

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBoundingBox2D_RejectsInvertedCorners(t *testing.T) {
	_, err := NewBoundingBox2D(Coordinate2D{X: 10, Y: 10}, Coordinate2D{X: 0, Y: 20})
	require.Error(t, err)

	_, err = NewBoundingBox2D(Coordinate2D{X: 0, Y: 0}, Coordinate2D{X: 0, Y: 1})
	require.Error(t, err)
}

func TestBoundingBox2D_Intersection(t *testing.T) {
	a, err := NewBoundingBox2D(Coordinate2D{X: 0, Y: 0}, Coordinate2D{X: 10, Y: 10})
	require.NoError(t, err)
	b, err := NewBoundingBox2D(Coordinate2D{X: 5, Y: 5}, Coordinate2D{X: 15, Y: 15})
	require.NoError(t, err)

	got, ok := a.Intersection(b)
	require.True(t, ok)
	assert.Equal(t, Coordinate2D{X: 5, Y: 5}, got.LowerLeft)
	assert.Equal(t, Coordinate2D{X: 10, Y: 10}, got.UpperRight)

	c, err := NewBoundingBox2D(Coordinate2D{X: 20, Y: 20}, Coordinate2D{X: 30, Y: 30})
	require.NoError(t, err)
	_, ok = a.Intersection(c)
	assert.False(t, ok)
}

func TestSpatialPartition2D_RoundTripsBoundingBox(t *testing.T) {
	p, err := NewSpatialPartition2D(Coordinate2D{X: -10, Y: 20}, Coordinate2D{X: 30, Y: -40})
	require.NoError(t, err)

	assert.Equal(t, 40.0, p.SizeX())
	assert.Equal(t, 60.0, p.SizeY())
	assert.Equal(t, p, PartitionFromBoundingBox(p.AsBoundingBox()))
}

func TestSpatialPartition2D_ContainsHonorsHalfOpenBorders(t *testing.T) {
	p, err := NewSpatialPartition2D(Coordinate2D{X: 0, Y: 10}, Coordinate2D{X: 10, Y: 0})
	require.NoError(t, err)

	assert.True(t, p.Contains(Coordinate2D{X: 0, Y: 10}))   // upper left is in
	assert.False(t, p.Contains(Coordinate2D{X: 10, Y: 0}))  // lower right is out
	assert.False(t, p.Contains(Coordinate2D{X: 5, Y: 0}))   // bottom border is out
	assert.True(t, p.Contains(Coordinate2D{X: 5, Y: 5}))
}

func TestTimeInterval_Intersects(t *testing.T) {
	interval := func(start, end int64) TimeInterval {
		iv, err := NewTimeInterval(TimeInstant(start), TimeInstant(end))
		require.NoError(t, err)
		return iv
	}

	tests := []struct {
		name string
		a, b TimeInterval
		want bool
	}{
		{"overlapping", interval(0, 10), interval(5, 15), true},
		{"touching half-open", interval(0, 10), interval(10, 20), false},
		{"disjoint", interval(0, 10), interval(20, 30), false},
		{"instant inside", NewInstant(5), interval(0, 10), true},
		{"instant at start", NewInstant(0), interval(0, 10), true},
		{"instant at end", NewInstant(10), interval(0, 10), false},
		{"equal instants", NewInstant(7), NewInstant(7), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Intersects(tt.b))
			assert.Equal(t, tt.want, tt.b.Intersects(tt.a))
		})
	}
}

func TestTimeInstant_RoundTripsThroughTime(t *testing.T) {
	ts, err := time.Parse(time.RFC3339, "2021-01-02T10:02:26Z")
	require.NoError(t, err)

	instant := InstantFromTime(ts)
	assert.Equal(t, TimeInstant(1_609_581_746_000), instant)
	assert.Equal(t, ts, instant.AsTime())
}

func TestNewSpatialResolution_RejectsNonPositive(t *testing.T) {
	_, err := NewSpatialResolution(0, 1)
	require.Error(t, err)
	_, err = NewSpatialResolution(1, -1)
	require.Error(t, err)

	r, err := NewSpatialResolution(0.5, 0.25)
	require.NoError(t, err)
	assert.Equal(t, SpatialResolution{X: 0.5, Y: 0.25}, r)
}
