package ogc

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/colorizer"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// Coverage is one fully materialized query result, independent of the
// output format. The grid is dense over the request window with no-data
// pixels holding the sentinel.
type Coverage struct {
	DataType         raster.DataType
	Grid             raster.Grid[float64]
	GeoTransform     raster.GeoTransform
	SpatialReference spatialref.SpatialReference
	Time             primitives.TimeInterval
}

// Encoder renders a coverage into one output format.
type Encoder interface {
	ContentType() string
	Encode(c Coverage) ([]byte, error)
}

// PNGEncoder renders coverages as grayscale images. The gradient is
// stretched over the value range of the grid, darkest at the minimum;
// no-data pixels come out transparent.
type PNGEncoder struct{}

func (PNGEncoder) ContentType() string { return "image/png" }

func (PNGEncoder) Encode(c Coverage) ([]byte, error) {
	bounds := c.Grid.GridBounds()
	if bounds.Dims() != 2 {
		return nil, eris.Errorf("cannot encode a %d-dimensional coverage as png", bounds.Dims())
	}

	lo, hi := valueRange(c.Grid)
	if hi <= lo {
		hi = lo + 1
	}
	gradient, err := colorizer.NewLinearGradient(
		[]colorizer.Breakpoint{
			{Value: lo, Color: colorizer.Black()},
			{Value: hi, Color: colorizer.White()},
		},
		colorizer.Transparent(),
		colorizer.Transparent(),
	)
	if err != nil {
		return nil, err
	}

	sizes := bounds.AxisSizes()
	return colorizer.ToPNG[float64](c.Grid, sizes[1], sizes[0], gradient)
}

// valueRange scans the data pixels of the grid. An all-no-data grid maps
// to the unit range.
func valueRange(g raster.Grid[float64]) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range g.Data {
		if g.IsNoData(v) || math.IsNaN(v) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo > hi {
		return 0, 1
	}
	return lo, hi
}
