package ogc

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// DefaultFormat is used when a GetCoverage request names no format.
const DefaultFormat = "image/png"

// lowered flattens query parameters into a case-insensitive lookup table.
// WCS clients disagree on parameter casing, so keys are folded and the
// first value wins.
func lowered(values url.Values) map[string]string {
	params := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		key = strings.ToLower(key)
		if _, ok := params[key]; !ok {
			params[key] = vals[0]
		}
	}
	return params
}

// CoverageRequest is a parsed GetCoverage request. Optional parameters
// stay nil so the handler can apply its defaults.
type CoverageRequest struct {
	Version        string
	Identifier     string
	GridBaseCrs    spatialref.SpatialReference
	BoundingBox    primitives.SpatialPartition2D
	BoundingBoxCrs *spatialref.SpatialReference
	GridOrigin     *primitives.Coordinate2D
	GridOffsets    *primitives.SpatialResolution
	Time           *primitives.TimeInterval
	Format         string
}

// ParseCoverageRequest decodes and validates the GetCoverage parameters.
// Coordinates arrive in the axis order of their CRS; geographic EPSG:4326
// uses latitude before longitude and is swapped into x/y here.
func ParseCoverageRequest(params map[string]string) (CoverageRequest, error) {
	req := CoverageRequest{
		Version:    params["version"],
		Identifier: params["identifier"],
		Format:     DefaultFormat,
	}
	if req.Version != "1.1.1" && req.Version != "1.1.0" {
		return CoverageRequest{}, &VersionNotSupportedError{Version: req.Version}
	}

	rawCrs, ok := params["gridbasecrs"]
	if !ok {
		return CoverageRequest{}, &MissingParameterError{Name: "gridbasecrs"}
	}
	gridCrs, err := spatialref.Parse(rawCrs)
	if err != nil {
		return CoverageRequest{}, err
	}
	req.GridBaseCrs = gridCrs

	rawBbox, ok := params["boundingbox"]
	if !ok {
		return CoverageRequest{}, &MissingParameterError{Name: "boundingbox"}
	}
	bbox, bboxCrs, err := parseBoundingBox(rawBbox, gridCrs)
	if err != nil {
		return CoverageRequest{}, err
	}
	req.BoundingBox = bbox
	req.BoundingBoxCrs = bboxCrs

	axisCrs := gridCrs
	if bboxCrs != nil {
		axisCrs = *bboxCrs
	}
	if raw, ok := params["gridorigin"]; ok {
		origin, err := parseCoordinate(raw, axisCrs)
		if err != nil {
			return CoverageRequest{}, eris.Wrap(err, "parse gridorigin")
		}
		req.GridOrigin = &origin
	}
	if raw, ok := params["gridoffsets"]; ok {
		offsets, err := parseGridOffsets(raw, axisCrs)
		if err != nil {
			return CoverageRequest{}, err
		}
		req.GridOffsets = &offsets
	}
	if raw, ok := params["time"]; ok {
		interval, err := parseTime(raw)
		if err != nil {
			return CoverageRequest{}, err
		}
		req.Time = &interval
	}
	if raw, ok := params["format"]; ok {
		req.Format = raw
	}

	return req, nil
}

// axisSwapped reports whether the CRS orders coordinates as (y, x).
// Geographic WGS 84 is the only such CRS the engine resolves.
func axisSwapped(srs spatialref.SpatialReference) bool {
	return srs == spatialref.Epsg4326()
}

// parseBoundingBox decodes "a,b,c,d[,crs-urn]" into a partition. The four
// numbers are the lower and upper corners in CRS axis order.
func parseBoundingBox(
	raw string,
	gridCrs spatialref.SpatialReference,
) (primitives.SpatialPartition2D, *spatialref.SpatialReference, error) {
	parts := strings.Split(raw, ",")

	var bboxCrs *spatialref.SpatialReference
	switch len(parts) {
	case 4:
	case 5:
		srs, err := spatialref.Parse(parts[4])
		if err != nil {
			return primitives.SpatialPartition2D{}, nil, eris.Wrap(err, "parse boundingbox crs")
		}
		bboxCrs = &srs
		parts = parts[:4]
	default:
		return primitives.SpatialPartition2D{}, nil,
			eris.Errorf("boundingbox must have 4 coordinates, got %q", raw)
	}

	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return primitives.SpatialPartition2D{}, nil,
				eris.Wrapf(err, "parse boundingbox coordinate %q", part)
		}
		values[i] = v
	}

	axisCrs := gridCrs
	if bboxCrs != nil {
		axisCrs = *bboxCrs
	}
	lower := primitives.Coordinate2D{X: values[0], Y: values[1]}
	upper := primitives.Coordinate2D{X: values[2], Y: values[3]}
	if axisSwapped(axisCrs) {
		lower = primitives.Coordinate2D{X: values[1], Y: values[0]}
		upper = primitives.Coordinate2D{X: values[3], Y: values[2]}
	}

	partition, err := primitives.NewSpatialPartition2D(
		primitives.Coordinate2D{X: lower.X, Y: upper.Y},
		primitives.Coordinate2D{X: upper.X, Y: lower.Y},
	)
	if err != nil {
		return primitives.SpatialPartition2D{}, nil, eris.Wrap(err, "boundingbox")
	}
	return partition, bboxCrs, nil
}

func parseCoordinate(raw string, axisCrs spatialref.SpatialReference) (primitives.Coordinate2D, error) {
	first, second, err := parsePair(raw)
	if err != nil {
		return primitives.Coordinate2D{}, err
	}
	if axisSwapped(axisCrs) {
		return primitives.Coordinate2D{X: second, Y: first}, nil
	}
	return primitives.Coordinate2D{X: first, Y: second}, nil
}

// parseGridOffsets decodes the per-axis pixel sizes. Signs are dropped:
// clients send the y offset negative for north-up grids.
func parseGridOffsets(raw string, axisCrs spatialref.SpatialReference) (primitives.SpatialResolution, error) {
	first, second, err := parsePair(raw)
	if err != nil {
		return primitives.SpatialResolution{}, eris.Wrap(err, "parse gridoffsets")
	}
	x, y := first, second
	if axisSwapped(axisCrs) {
		x, y = second, first
	}
	return primitives.NewSpatialResolution(absFloat(x), absFloat(y))
}

func parsePair(raw string) (float64, float64, error) {
	first, second, ok := strings.Cut(raw, ",")
	if !ok {
		return 0, 0, eris.Errorf("expected two comma-separated numbers, got %q", raw)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "parse %q", first)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(second), 64)
	if err != nil {
		return 0, 0, eris.Wrapf(err, "parse %q", second)
	}
	return a, b, nil
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// parseTime decodes an RFC 3339 instant or a "start/end" interval.
func parseTime(raw string) (primitives.TimeInterval, error) {
	if start, end, ok := strings.Cut(raw, "/"); ok {
		startTime, err := time.Parse(time.RFC3339, start)
		if err != nil {
			return primitives.TimeInterval{}, eris.Wrapf(err, "parse time %q", start)
		}
		endTime, err := time.Parse(time.RFC3339, end)
		if err != nil {
			return primitives.TimeInterval{}, eris.Wrapf(err, "parse time %q", end)
		}
		return primitives.NewTimeInterval(
			primitives.InstantFromTime(startTime),
			primitives.InstantFromTime(endTime),
		)
	}
	instant, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return primitives.TimeInterval{}, eris.Wrapf(err, "parse time %q", raw)
	}
	return primitives.NewInstant(primitives.InstantFromTime(instant)), nil
}
