package colorizer

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/raster"
)

func grayscale(t *testing.T) Colorizer {
	t.Helper()
	c, err := NewLinearGradient([]Breakpoint{
		{Value: 0, Color: Black()},
		{Value: 255, Color: White()},
	}, Transparent(), Pink())
	require.NoError(t, err)
	return c
}

func TestNewLinearGradient_RejectsBadBreakpoints(t *testing.T) {
	var invalid *InvalidColorizerError

	// ---- too few ----
	_, err := NewLinearGradient([]Breakpoint{{Value: 0, Color: Black()}}, Transparent(), Pink())
	require.ErrorAs(t, err, &invalid)

	// ---- not ascending ----
	_, err = NewLinearGradient([]Breakpoint{
		{Value: 10, Color: Black()},
		{Value: 10, Color: White()},
	}, Transparent(), Pink())
	require.ErrorAs(t, err, &invalid)
}

func TestNewLogarithmicGradient_RequiresPositiveValues(t *testing.T) {
	_, err := NewLogarithmicGradient([]Breakpoint{
		{Value: 0, Color: Black()},
		{Value: 100, Color: White()},
	}, Transparent(), Pink())
	var invalid *InvalidColorizerError
	require.ErrorAs(t, err, &invalid)
}

func TestColorOf_LinearGradient(t *testing.T) {
	c := grayscale(t)

	assert.Equal(t, Black(), c.ColorOf(0))
	assert.Equal(t, White(), c.ColorOf(255))
	assert.Equal(t, NewRgbaColor(51, 51, 51, 255), c.ColorOf(51))
	assert.Equal(t, Pink(), c.ColorOf(-1), "below the range maps to the default color")
	assert.Equal(t, Pink(), c.ColorOf(256), "above the range maps to the default color")
}

func TestColorOf_LogarithmicGradientInterpolatesInLogSpace(t *testing.T) {
	c, err := NewLogarithmicGradient([]Breakpoint{
		{Value: 1, Color: Black()},
		{Value: 100, Color: White()},
	}, Transparent(), Pink())
	require.NoError(t, err)

	assert.Equal(t, NewRgbaColor(128, 128, 128, 255), c.ColorOf(10))
	assert.Equal(t, Pink(), c.ColorOf(0))
}

func TestColorOf_PaletteMatchesExactly(t *testing.T) {
	c, err := NewPalette(map[float64]RgbaColor{
		1: White(),
		2: Black(),
	}, Transparent(), Pink())
	require.NoError(t, err)

	assert.Equal(t, White(), c.ColorOf(1))
	assert.Equal(t, Pink(), c.ColorOf(1.5))
}

func TestColorOfBits_UnpacksChannels(t *testing.T) {
	c := NewRgba()
	assert.Equal(t, NewRgbaColor(0x11, 0x22, 0x33, 0x44), c.ColorOfBits(0x11223344))
}

func TestColorizer_JSONRoundTrip(t *testing.T) {
	// ---- gradient ----
	encoded, err := json.Marshal(grayscale(t))
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"type":"linearGradient"`)

	var decoded Colorizer
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, grayscale(t), decoded)

	// ---- palette keys survive as numbers ----
	palette, err := NewPalette(map[float64]RgbaColor{2.5: White()}, Transparent(), Pink())
	require.NoError(t, err)
	encoded, err = json.Marshal(palette)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, White(), decoded.Palette[2.5])

	// ---- invalid definitions fail decoding ----
	err = json.Unmarshal([]byte(`{"type":"linearGradient","breakpoints":[]}`), &decoded)
	var invalid *InvalidColorizerError
	require.ErrorAs(t, err, &invalid)
}

func TestToPNG_RendersGradientWithNoData(t *testing.T) {
	bounds, err := raster.GridShape(2, 2)
	require.NoError(t, err)
	noData := uint8(0)
	grid, err := raster.NewGrid(bounds, []uint8{255, 100, 0, 0}, &noData)
	require.NoError(t, err)

	imageBytes, err := ToPNG[uint8](grid, 100, 100, grayscale(t))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(imageBytes))
	require.NoError(t, err)
	require.Equal(t, 100, img.Bounds().Dx())
	require.Equal(t, 100, img.Bounds().Dy())

	at := func(x, y int) color.NRGBA {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	}
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, at(25, 25))
	assert.Equal(t, color.NRGBA{R: 100, G: 100, B: 100, A: 255}, at(75, 25))
	assert.Equal(t, uint8(0), at(25, 75).A, "no-data cells render transparent")
	assert.Equal(t, uint8(0), at(75, 75).A)

	// Rendering is deterministic so encoded bytes can be compared directly.
	again, err := ToPNG[uint8](grid, 100, 100, grayscale(t))
	require.NoError(t, err)
	assert.Equal(t, imageBytes, again)
}

func TestToPNG_PixelCentersPickNearestCell(t *testing.T) {
	bounds, err := raster.GridShape(2, 2)
	require.NoError(t, err)
	grid, err := raster.NewGrid(bounds, []uint8{255, 0, 0, 255}, nil)
	require.NoError(t, err)

	imageBytes, err := ToPNG[uint8](grid, 100, 100, grayscale(t))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(imageBytes))
	require.NoError(t, err)

	at := func(x, y int) uint8 {
		return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA).R
	}
	// Cell boundary falls between image columns 49 and 50.
	assert.Equal(t, uint8(255), at(49, 0))
	assert.Equal(t, uint8(0), at(50, 0))
	assert.Equal(t, uint8(255), at(50, 99))
}

func TestToPNG_RejectsBadInputs(t *testing.T) {
	bounds, err := raster.GridShape(2, 2)
	require.NoError(t, err)
	grid := raster.NewFilledGrid[uint8](bounds, 0, nil)

	_, err = ToPNG[uint8](grid, 0, 100, grayscale(t))
	require.Error(t, err)

	cube, err := raster.GridShape(2, 2, 2)
	require.NoError(t, err)
	_, err = ToPNG[uint8](raster.NewFilledGrid[uint8](cube, 0, nil), 10, 10, grayscale(t))
	require.Error(t, err)
}
