package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

func TestParseBBox(t *testing.T) {
	bbox, err := parseBBox("-10, 20, 50, 80")
	require.NoError(t, err)
	assert.Equal(t, primitives.Coordinate2D{X: -10, Y: 20}, bbox.LowerLeft)
	assert.Equal(t, primitives.Coordinate2D{X: 50, Y: 80}, bbox.UpperRight)
}

func TestParseBBox_Invalid(t *testing.T) {
	_, err := parseBBox("1,2,3")
	assert.Error(t, err)

	_, err = parseBBox("1,2,three,4")
	assert.Error(t, err)

	// Degenerate boxes are rejected by the constructor.
	_, err = parseBBox("10,10,0,0")
	assert.Error(t, err)
}

func TestParseQueryTime_DefaultsToNow(t *testing.T) {
	interval, err := parseQueryTime("")
	require.NoError(t, err)
	assert.True(t, interval.IsInstant())
	assert.WithinDuration(t, time.Now(), interval.Start.AsTime(), time.Minute)
}

func TestParseQueryTime_Explicit(t *testing.T) {
	interval, err := parseQueryTime("2014-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1388534400000), int64(interval.Start))
	assert.True(t, interval.IsInstant())
}

func TestParseResolution_Explicit(t *testing.T) {
	bbox, err := primitives.NewBoundingBox2D(
		primitives.Coordinate2D{X: 0, Y: 0}, primitives.Coordinate2D{X: 4, Y: 4})
	require.NoError(t, err)

	res, err := parseResolution("0.5, 0.25", bbox)
	require.NoError(t, err)
	assert.Equal(t, primitives.SpatialResolution{X: 0.5, Y: 0.25}, res)
}

func TestParseResolution_DefaultsToWindowFraction(t *testing.T) {
	bbox, err := primitives.NewBoundingBox2D(
		primitives.Coordinate2D{X: 0, Y: 0}, primitives.Coordinate2D{X: 256, Y: 512})
	require.NoError(t, err)

	res, err := parseResolution("", bbox)
	require.NoError(t, err)
	assert.Equal(t, primitives.SpatialResolution{X: 1, Y: 2}, res)
}
