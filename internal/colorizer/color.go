package colorizer

import "math"

// RgbaColor is a color with straight (non-premultiplied) alpha, stored as
// [r, g, b, a]. It serializes to a JSON array in that order.
type RgbaColor [4]uint8

// NewRgbaColor builds a color from its channels.
func NewRgbaColor(r, g, b, a uint8) RgbaColor { return RgbaColor{r, g, b, a} }

// Common colors used as gradient endpoints and fallbacks.
func White() RgbaColor       { return RgbaColor{255, 255, 255, 255} }
func Black() RgbaColor       { return RgbaColor{0, 0, 0, 255} }
func Transparent() RgbaColor { return RgbaColor{0, 0, 0, 0} }
func Pink() RgbaColor        { return RgbaColor{255, 0, 255, 255} }

func (c RgbaColor) R() uint8 { return c[0] }
func (c RgbaColor) G() uint8 { return c[1] }
func (c RgbaColor) B() uint8 { return c[2] }
func (c RgbaColor) A() uint8 { return c[3] }

// blend interpolates channel-wise between two colors; fraction 0 is c,
// fraction 1 is other.
func (c RgbaColor) blend(other RgbaColor, fraction float64) RgbaColor {
	var out RgbaColor
	for i := range c {
		out[i] = uint8(math.Round(float64(c[i]) + fraction*(float64(other[i])-float64(c[i]))))
	}
	return out
}

// Breakpoint anchors a color at a raster value on a gradient.
type Breakpoint struct {
	Value float64   `json:"value"`
	Color RgbaColor `json:"color"`
}
