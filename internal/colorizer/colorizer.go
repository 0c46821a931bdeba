package colorizer

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// Type discriminates the colorizer union on the wire.
type Type string

const (
	TypeLinearGradient      Type = "linearGradient"
	TypeLogarithmicGradient Type = "logarithmicGradient"
	TypePalette             Type = "palette"
	TypeRgba                Type = "rgba"
)

// InvalidColorizerError reports a colorizer definition that cannot map
// values.
type InvalidColorizerError struct {
	Reason string
}

func (e *InvalidColorizerError) Error() string {
	return "invalid colorizer: " + e.Reason
}

// Colorizer maps raster values to colors. Gradients interpolate between
// breakpoints, palettes look colors up exactly and rgba reinterprets the
// pixel bits as a color. Values outside a gradient's breakpoint range map
// to the default color, no-data pixels to the no-data color.
type Colorizer struct {
	Type         Type
	Breakpoints  []Breakpoint
	Palette      map[float64]RgbaColor
	NoDataColor  RgbaColor
	DefaultColor RgbaColor
}

// NewLinearGradient builds a gradient over at least two strictly ascending
// breakpoints.
func NewLinearGradient(breakpoints []Breakpoint, noData, fallback RgbaColor) (Colorizer, error) {
	if err := validateBreakpoints(breakpoints); err != nil {
		return Colorizer{}, err
	}
	return Colorizer{
		Type:         TypeLinearGradient,
		Breakpoints:  breakpoints,
		NoDataColor:  noData,
		DefaultColor: fallback,
	}, nil
}

// NewLogarithmicGradient builds a gradient interpolated in log10 space; all
// breakpoint values must be positive.
func NewLogarithmicGradient(breakpoints []Breakpoint, noData, fallback RgbaColor) (Colorizer, error) {
	if err := validateBreakpoints(breakpoints); err != nil {
		return Colorizer{}, err
	}
	if breakpoints[0].Value <= 0 {
		return Colorizer{}, &InvalidColorizerError{
			Reason: "logarithmic gradients require positive breakpoint values",
		}
	}
	return Colorizer{
		Type:         TypeLogarithmicGradient,
		Breakpoints:  breakpoints,
		NoDataColor:  noData,
		DefaultColor: fallback,
	}, nil
}

// NewPalette builds an exact-match lookup of up to 256 colors.
func NewPalette(colors map[float64]RgbaColor, noData, fallback RgbaColor) (Colorizer, error) {
	if len(colors) == 0 {
		return Colorizer{}, &InvalidColorizerError{Reason: "palette has no colors"}
	}
	if len(colors) > 256 {
		return Colorizer{}, &InvalidColorizerError{Reason: "palette exceeds 256 colors"}
	}
	return Colorizer{
		Type:         TypePalette,
		Palette:      colors,
		NoDataColor:  noData,
		DefaultColor: fallback,
	}, nil
}

// NewRgba builds a colorizer that treats each pixel's bit pattern as an
// rgba color.
func NewRgba() Colorizer {
	return Colorizer{Type: TypeRgba}
}

func validateBreakpoints(breakpoints []Breakpoint) error {
	if len(breakpoints) < 2 {
		return &InvalidColorizerError{Reason: "gradients need at least two breakpoints"}
	}
	for i := 1; i < len(breakpoints); i++ {
		if breakpoints[i].Value <= breakpoints[i-1].Value {
			return &InvalidColorizerError{Reason: "breakpoint values must be strictly ascending"}
		}
	}
	return nil
}

// MinValue is the smallest value a gradient maps; zero for other types.
func (c Colorizer) MinValue() float64 {
	if len(c.Breakpoints) == 0 {
		return 0
	}
	return c.Breakpoints[0].Value
}

// MaxValue is the largest value a gradient maps; zero for other types.
func (c Colorizer) MaxValue() float64 {
	if len(c.Breakpoints) == 0 {
		return 0
	}
	return c.Breakpoints[len(c.Breakpoints)-1].Value
}

// ColorOf maps one raster value. Rgba colorizers must go through
// ColorOfBits instead; ColorOf treats the value as bits after a plain
// numeric conversion.
func (c Colorizer) ColorOf(value float64) RgbaColor {
	switch c.Type {
	case TypeLinearGradient:
		return c.gradientColor(value, func(v float64) float64 { return v })
	case TypeLogarithmicGradient:
		if value <= 0 {
			return c.DefaultColor
		}
		return c.gradientColor(value, math.Log10)
	case TypePalette:
		if color, ok := c.Palette[value]; ok {
			return color
		}
		return c.DefaultColor
	case TypeRgba:
		return c.ColorOfBits(uint32(value))
	default:
		return c.DefaultColor
	}
}

// ColorOfBits reinterprets a pixel's 32 bits as 0xRRGGBBAA.
func (c Colorizer) ColorOfBits(bits uint32) RgbaColor {
	return RgbaColor{
		uint8(bits >> 24),
		uint8(bits >> 16),
		uint8(bits >> 8),
		uint8(bits),
	}
}

func (c Colorizer) gradientColor(value float64, project func(float64) float64) RgbaColor {
	points := c.Breakpoints
	if value < points[0].Value || value > points[len(points)-1].Value {
		return c.DefaultColor
	}
	// Index of the first breakpoint at or above the value.
	upper := sort.Search(len(points), func(i int) bool { return points[i].Value >= value })
	if points[upper].Value == value {
		return points[upper].Color
	}
	lower := upper - 1
	span := project(points[upper].Value) - project(points[lower].Value)
	fraction := (project(value) - project(points[lower].Value)) / span
	return points[lower].Color.blend(points[upper].Color, fraction)
}

type colorizerWire struct {
	Type         Type                 `json:"type"`
	Breakpoints  []Breakpoint         `json:"breakpoints,omitempty"`
	Colors       map[string]RgbaColor `json:"colors,omitempty"`
	NoDataColor  RgbaColor            `json:"noDataColor"`
	DefaultColor RgbaColor            `json:"defaultColor"`
}

// MarshalJSON writes the tagged union; palette keys become decimal
// strings.
func (c Colorizer) MarshalJSON() ([]byte, error) {
	wire := colorizerWire{
		Type:         c.Type,
		Breakpoints:  c.Breakpoints,
		NoDataColor:  c.NoDataColor,
		DefaultColor: c.DefaultColor,
	}
	if c.Palette != nil {
		wire.Colors = make(map[string]RgbaColor, len(c.Palette))
		for value, color := range c.Palette {
			wire.Colors[strconv.FormatFloat(value, 'f', -1, 64)] = color
		}
	}
	return json.Marshal(wire)
}

// UnmarshalJSON reads the tagged union and re-validates it.
func (c *Colorizer) UnmarshalJSON(data []byte) error {
	var wire colorizerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return eris.Wrap(err, "decoding colorizer")
	}

	switch wire.Type {
	case TypeLinearGradient:
		decoded, err := NewLinearGradient(wire.Breakpoints, wire.NoDataColor, wire.DefaultColor)
		if err != nil {
			return err
		}
		*c = decoded
	case TypeLogarithmicGradient:
		decoded, err := NewLogarithmicGradient(wire.Breakpoints, wire.NoDataColor, wire.DefaultColor)
		if err != nil {
			return err
		}
		*c = decoded
	case TypePalette:
		colors := make(map[float64]RgbaColor, len(wire.Colors))
		for key, color := range wire.Colors {
			value, err := strconv.ParseFloat(key, 64)
			if err != nil {
				return eris.Wrapf(err, "palette key %q is not a number", key)
			}
			colors[value] = color
		}
		decoded, err := NewPalette(colors, wire.NoDataColor, wire.DefaultColor)
		if err != nil {
			return err
		}
		*c = decoded
	case TypeRgba:
		*c = NewRgba()
	default:
		return &InvalidColorizerError{Reason: "unknown colorizer type " + string(wire.Type)}
	}
	return nil
}
