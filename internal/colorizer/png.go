package colorizer

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/raster"
)

// ToPNG renders a 2D grid to a width x height PNG. Image pixels sample the
// grid nearest-neighbor through their centers, so up- and downscaling both
// pick the cell under the pixel center. No-data cells and cells outside
// the grid render with the colorizer's no-data color.
func ToPNG[P raster.Pixel](g raster.IndexedGrid[P], width, height int, c Colorizer) ([]byte, error) {
	if width < 1 || height < 1 {
		return nil, eris.Errorf("image size %dx%d is not positive", width, height)
	}
	bounds := g.GridBounds()
	if bounds.Dims() != 2 {
		return nil, eris.Errorf("can only render 2-dimensional grids, got %d axes", bounds.Dims())
	}

	sizes := bounds.AxisSizes()
	scaleY := float64(sizes[0]) / float64(height)
	scaleX := float64(sizes[1]) / float64(width)

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := bounds.Min[0] + rasterCell(y, scaleY)
		for x := 0; x < width; x++ {
			col := bounds.Min[1] + rasterCell(x, scaleX)
			img.SetNRGBA(x, y, nrgba(colorAt(g, raster.Idx(row, col), c)))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, eris.Wrap(err, "encoding png")
	}
	return buf.Bytes(), nil
}

// rasterCell maps an image pixel onto the grid cell under its center.
func rasterCell(pixel int, scale float64) int {
	return int(math.Round((float64(pixel)+0.5)*scale - 0.5))
}

func colorAt[P raster.Pixel](g raster.IndexedGrid[P], idx raster.GridIdx, c Colorizer) RgbaColor {
	v, err := g.At(idx)
	if err != nil {
		return c.NoDataColor
	}
	if noData, ok := g.NoDataValue(); ok && v == noData {
		return c.NoDataColor
	}
	if c.Type == TypeRgba {
		return c.ColorOfBits(pixelBits(v))
	}
	return c.ColorOf(float64(v))
}

// pixelBits exposes a pixel's raw bit pattern for rgba colorizers.
// Integers zero-extend, floats are reinterpreted rather than converted and
// float64 keeps its low word.
func pixelBits[P raster.Pixel](v P) uint32 {
	switch v := any(v).(type) {
	case uint8:
		return uint32(v)
	case uint16:
		return uint32(v)
	case uint32:
		return v
	case int8:
		return uint32(uint8(v))
	case int16:
		return uint32(uint16(v))
	case int32:
		return uint32(v)
	case float32:
		return math.Float32bits(v)
	case float64:
		return uint32(math.Float64bits(v))
	default:
		return 0
	}
}

func nrgba(c RgbaColor) color.NRGBA {
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}
