package spatialref

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

// WGS84 ellipsoid and UTM constants.
const (
	semiMajor  = 6_378_137.0
	flattening = 1.0 / 298.257223563

	utmScale              = 0.9996
	utmFalseEasting       = 500_000.0
	utmFalseNorthingSouth = 10_000_000.0

	webMercatorRadius = 6_378_137.0
)

var (
	e2  = flattening * (2 - flattening) // first eccentricity squared
	ep2 = e2 / (1 - e2)                 // second eccentricity squared
)

// Projector transforms coordinates between two spatial references. It is
// pure Go and supports geographic WGS 84, web mercator and the WGS 84 UTM
// zones; any other pair fails at construction time.
type Projector struct {
	from, to SpatialReference
	forward  func(primitives.Coordinate2D) (primitives.Coordinate2D, error)
}

// NewProjector builds a projector from one reference to another.
func NewProjector(from, to SpatialReference) (*Projector, error) {
	if from == to {
		return &Projector{from: from, to: to, forward: identity}, nil
	}

	toGeo, err := toGeographic(from)
	if err != nil {
		return nil, err
	}
	fromGeo, err := fromGeographic(to)
	if err != nil {
		return nil, err
	}

	return &Projector{
		from: from,
		to:   to,
		forward: func(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
			geo, err := toGeo(c)
			if err != nil {
				return primitives.Coordinate2D{}, err
			}
			return fromGeo(geo)
		},
	}, nil
}

// Project transforms a single coordinate.
func (p *Projector) Project(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
	out, err := p.forward(c)
	if err != nil {
		return primitives.Coordinate2D{}, eris.Wrapf(err, "project %s from %s to %s", c, p.from, p.to)
	}
	return out, nil
}

// ProjectBBox transforms a bounding box by projecting its corners and edge
// midpoints and taking the envelope of the results.
func (p *Projector) ProjectBBox(b primitives.BoundingBox2D) (primitives.BoundingBox2D, error) {
	ll, ur := b.LowerLeft, b.UpperRight
	midX := (ll.X + ur.X) / 2
	midY := (ll.Y + ur.Y) / 2
	samples := []primitives.Coordinate2D{
		ll, ur,
		{X: ll.X, Y: ur.Y}, {X: ur.X, Y: ll.Y},
		{X: midX, Y: ll.Y}, {X: midX, Y: ur.Y},
		{X: ll.X, Y: midY}, {X: ur.X, Y: midY},
	}

	outMin := primitives.Coordinate2D{X: math.Inf(1), Y: math.Inf(1)}
	outMax := primitives.Coordinate2D{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, s := range samples {
		out, err := p.Project(s)
		if err != nil {
			return primitives.BoundingBox2D{}, err
		}
		outMin = outMin.MinElements(out)
		outMax = outMax.MaxElements(out)
	}
	return primitives.NewBoundingBox2D(outMin, outMax)
}

// ProjectBBoxClipped transforms a bounding box and clips the result to the
// target's area of use.
func (p *Projector) ProjectBBoxClipped(b primitives.BoundingBox2D) (primitives.BoundingBox2D, error) {
	projected, err := p.ProjectBBox(b)
	if err != nil {
		return primitives.BoundingBox2D{}, err
	}
	area, err := p.to.AreaOfUseProjected()
	if err != nil {
		return primitives.BoundingBox2D{}, err
	}
	clipped, ok := projected.Intersection(area)
	if !ok {
		return primitives.BoundingBox2D{}, eris.Errorf(
			"bounding box %s lies outside the area of use of %s", b, p.to)
	}
	return clipped, nil
}

func identity(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
	return c, nil
}

// toGeographic returns a transform from the given CRS into lon/lat degrees.
func toGeographic(s SpatialReference) (func(primitives.Coordinate2D) (primitives.Coordinate2D, error), error) {
	if s == Epsg4326() {
		return identity, nil
	}
	if s == WebMercator() {
		return func(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
			lon := c.X / webMercatorRadius * 180 / math.Pi
			lat := (2*math.Atan(math.Exp(c.Y/webMercatorRadius)) - math.Pi/2) * 180 / math.Pi
			return primitives.Coordinate2D{X: lon, Y: lat}, nil
		}, nil
	}
	if zone, north, ok := s.utmZone(); ok {
		return func(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
			lon, lat := utmToLonLat(c.X, c.Y, zone, north)
			return primitives.Coordinate2D{X: lon, Y: lat}, nil
		}, nil
	}
	return nil, eris.Errorf("unsupported source spatial reference %s", s)
}

// fromGeographic returns a transform from lon/lat degrees into the given CRS.
func fromGeographic(s SpatialReference) (func(primitives.Coordinate2D) (primitives.Coordinate2D, error), error) {
	if s == Epsg4326() {
		return identity, nil
	}
	if s == WebMercator() {
		return func(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
			if c.Y <= -90 || c.Y >= 90 {
				return primitives.Coordinate2D{}, eris.Errorf("latitude %g out of mercator range", c.Y)
			}
			x := c.X * math.Pi / 180 * webMercatorRadius
			y := math.Log(math.Tan(math.Pi/4+c.Y*math.Pi/180/2)) * webMercatorRadius
			return primitives.Coordinate2D{X: x, Y: y}, nil
		}, nil
	}
	if zone, north, ok := s.utmZone(); ok {
		return func(c primitives.Coordinate2D) (primitives.Coordinate2D, error) {
			x, y := lonLatToUtm(c.X, c.Y, zone, north)
			return primitives.Coordinate2D{X: x, Y: y}, nil
		}, nil
	}
	return nil, eris.Errorf("unsupported target spatial reference %s", s)
}

// centralMeridian returns the central meridian of a UTM zone in radians.
func centralMeridian(zone uint32) float64 {
	return (float64(zone-1)*6 - 180 + 3) * math.Pi / 180
}

// meridionalArc computes the arc length from the equator to the latitude.
func meridionalArc(lat float64) float64 {
	return semiMajor * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*lat -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*lat) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*lat) -
		(35*e2*e2*e2/3072)*math.Sin(6*lat))
}

// lonLatToUtm projects geographic degrees onto a UTM zone (Snyder 1987).
func lonLatToUtm(lon, lat float64, zone uint32, north bool) (easting, northing float64) {
	phi := lat * math.Pi / 180
	lam := lon * math.Pi / 180
	lam0 := centralMeridian(zone)

	sinPhi, cosPhi := math.Sincos(phi)
	tanPhi := sinPhi / cosPhi

	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := (lam - lam0) * cosPhi
	m := meridionalArc(phi)

	easting = utmFalseEasting + utmScale*n*(a+
		(1-t+c)*a*a*a/6+
		(5-18*t+t*t+72*c-58*ep2)*a*a*a*a*a/120)

	northing = utmScale * (m + n*tanPhi*(a*a/2+
		(5-t+9*c+4*c*c)*a*a*a*a/24+
		(61-58*t+t*t+600*c-330*ep2)*a*a*a*a*a*a/720))
	if !north {
		northing += utmFalseNorthingSouth
	}
	return easting, northing
}

// utmToLonLat inverts the UTM projection (Snyder 1987).
func utmToLonLat(easting, northing float64, zone uint32, north bool) (lon, lat float64) {
	x := easting - utmFalseEasting
	y := northing
	if !north {
		y -= utmFalseNorthingSouth
	}

	m := y / utmScale
	mu := m / (semiMajor * (1 - e2/4 - 3*e2*e2/64 - 5*e2*e2*e2/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1, cosPhi1 := math.Sincos(phi1)
	tanPhi1 := sinPhi1 / cosPhi1

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajor / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := x / (n1 * utmScale)

	phi := phi1 - (n1 * tanPhi1 / r1) * (d*d/2 -
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d*d*d*d/24 +
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d*d*d*d*d*d/720)

	lam := centralMeridian(zone) + (d-
		(1+2*t1+c1)*d*d*d/6+
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d*d*d*d*d/120)/cosPhi1

	return lam * 180 / math.Pi, phi * 180 / math.Pi
}
