package spatialref

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

// Authority is the registry that issued a spatial reference code.
type Authority string

// Epsg is the only authority the engine currently resolves.
const Epsg Authority = "EPSG"

// SpatialReference identifies a coordinate reference system by authority
// and code, e.g. EPSG:4326.
type SpatialReference struct {
	Authority Authority `json:"authority"`
	Code      uint32    `json:"code"`
}

// New creates a spatial reference from authority and code.
func New(authority Authority, code uint32) SpatialReference {
	return SpatialReference{Authority: authority, Code: code}
}

// Epsg4326 is WGS 84 geographic coordinates.
func Epsg4326() SpatialReference { return New(Epsg, 4326) }

// WebMercator is EPSG:3857 spherical mercator.
func WebMercator() SpatialReference { return New(Epsg, 3857) }

// UtmNorth returns the EPSG code for the given northern UTM zone.
func UtmNorth(zone uint32) SpatialReference { return New(Epsg, 32600+zone) }

// UtmSouth returns the EPSG code for the given southern UTM zone.
func UtmSouth(zone uint32) SpatialReference { return New(Epsg, 32700+zone) }

func (s SpatialReference) String() string {
	return fmt.Sprintf("%s:%d", s.Authority, s.Code)
}

// Urn renders the reference in OGC urn notation.
func (s SpatialReference) Urn() string {
	return fmt.Sprintf("urn:ogc:def:crs:%s::%d", s.Authority, s.Code)
}

// MarshalText implements encoding.TextMarshaler so references serialize as
// "EPSG:4326" inside JSON documents.
func (s SpatialReference) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SpatialReference) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Parse accepts "EPSG:4326" and the OGC urn form "urn:ogc:def:crs:EPSG::4326".
func Parse(s string) (SpatialReference, error) {
	raw := s
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "urn:ogc:def:crs:"); ok {
		// authority::code
		rest = s[len(s)-len(rest):]
		rest = strings.Replace(rest, "::", ":", 1)
		raw = rest
	}

	authority, codeStr, ok := strings.Cut(raw, ":")
	if !ok {
		return SpatialReference{}, eris.Errorf("invalid spatial reference %q", s)
	}
	code, err := strconv.ParseUint(codeStr, 10, 32)
	if err != nil {
		return SpatialReference{}, eris.Wrapf(err, "invalid spatial reference code in %q", s)
	}
	return SpatialReference{
		Authority: Authority(strings.ToUpper(authority)),
		Code:      uint32(code),
	}, nil
}

// utmZone splits an EPSG UTM code into zone number and hemisphere.
func (s SpatialReference) utmZone() (zone uint32, north bool, ok bool) {
	if s.Authority != Epsg {
		return 0, false, false
	}
	switch {
	case s.Code > 32600 && s.Code <= 32660:
		return s.Code - 32600, true, true
	case s.Code > 32700 && s.Code <= 32760:
		return s.Code - 32700, false, true
	}
	return 0, false, false
}

// AreaOfUseProjected returns the valid extent of the CRS in its own units.
func (s SpatialReference) AreaOfUseProjected() (primitives.BoundingBox2D, error) {
	if s == Epsg4326() {
		return primitives.BoundingBox2D{
			LowerLeft:  primitives.Coordinate2D{X: -180, Y: -90},
			UpperRight: primitives.Coordinate2D{X: 180, Y: 90},
		}, nil
	}
	if s == WebMercator() {
		const ext = 20_037_508.342789244
		return primitives.BoundingBox2D{
			LowerLeft:  primitives.Coordinate2D{X: -ext, Y: -ext},
			UpperRight: primitives.Coordinate2D{X: ext, Y: ext},
		}, nil
	}
	if _, north, ok := s.utmZone(); ok {
		// Standard UTM zone envelope: 3 degrees either side of the central
		// meridian, equator to 84N (or 80S to equator).
		if north {
			return primitives.BoundingBox2D{
				LowerLeft:  primitives.Coordinate2D{X: 166_021.44, Y: 0},
				UpperRight: primitives.Coordinate2D{X: 833_978.56, Y: 9_329_005.18},
			}, nil
		}
		return primitives.BoundingBox2D{
			LowerLeft:  primitives.Coordinate2D{X: 166_021.44, Y: 1_116_915.04},
			UpperRight: primitives.Coordinate2D{X: 833_978.56, Y: 10_000_000},
		}, nil
	}
	return primitives.BoundingBox2D{}, eris.Errorf("no known area of use for %s", s)
}
