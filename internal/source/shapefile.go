package source

import (
	"context"
	"iter"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/text/encoding/charmap"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// shapefileBatchSize is the feature count per emitted collection.
const shapefileBatchSize = 256

// ShapefileSourceParams locate the file and fix the validity of its
// features. A zero Time means always valid.
type ShapefileSourceParams struct {
	Path             string                       `json:"path"`
	Time             primitives.TimeInterval      `json:"time"`
	SpatialReference *spatialref.SpatialReference `json:"spatialReference,omitempty"`
}

// ShapefileSource is the leaf operator reading vector features from a
// shapefile. DBF attributes are decoded from Latin-1.
type ShapefileSource struct {
	Params ShapefileSourceParams `json:"params"`
}

// Initialize reads the file header to derive the result descriptor.
func (s *ShapefileSource) Initialize(
	_ context.Context,
	_ engine.ExecutionContext,
) (engine.InitializedVectorOperator, error) {
	reader, err := shp.Open(s.Params.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "open shapefile %s", s.Params.Path)
	}
	defer func() { _ = reader.Close() }()

	dataType, err := vectorTypeOf(reader.GeometryType)
	if err != nil {
		return nil, err
	}
	columns := columnsOf(reader.Fields())

	descriptor, err := engine.NewVectorResultDescriptor(dataType, s.Params.SpatialReference, columns)
	if err != nil {
		return nil, err
	}
	return &initializedShapefileSource{descriptor: descriptor, params: s.Params}, nil
}

func vectorTypeOf(shapeType shp.ShapeType) (engine.VectorDataType, error) {
	switch shapeType {
	case shp.POINT, shp.POINTZ, shp.POINTM, shp.MULTIPOINT, shp.MULTIPOINTZ, shp.MULTIPOINTM:
		return engine.VectorMultiPoint, nil
	case shp.POLYLINE, shp.POLYLINEZ, shp.POLYLINEM:
		return engine.VectorMultiLineString, nil
	case shp.POLYGON, shp.POLYGONZ, shp.POLYGONM:
		return engine.VectorMultiPolygon, nil
	default:
		return "", eris.Errorf("unsupported shapefile geometry type %d", shapeType)
	}
}

func columnsOf(fields []shp.Field) []engine.Column {
	columns := make([]engine.Column, 0, len(fields))
	for _, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		var colType engine.FeatureDataType
		switch f.Fieldtype {
		case 'N':
			if f.Precision > 0 {
				colType = engine.FeatureFloat
			} else {
				colType = engine.FeatureInt
			}
		case 'F':
			colType = engine.FeatureFloat
		default:
			colType = engine.FeatureText
		}
		columns = append(columns, engine.Column{Name: name, Type: colType})
	}
	return columns
}

type initializedShapefileSource struct {
	descriptor engine.VectorResultDescriptor
	params     ShapefileSourceParams
}

func (s *initializedShapefileSource) ResultDescriptor() engine.VectorResultDescriptor {
	return s.descriptor
}

func (s *initializedShapefileSource) QueryProcessor() (engine.TypedVectorQueryProcessor, error) {
	return engine.TypedVectorQueryProcessor{
		DataType: s.descriptor.DataType,
		Processor: &shapefileProcessor{
			descriptor: s.descriptor,
			params:     s.params,
		},
	}, nil
}

type shapefileProcessor struct {
	descriptor engine.VectorResultDescriptor
	params     ShapefileSourceParams
}

// VectorQuery streams the file in batches, filtered by the query window.
// The file is opened at iteration time, not at query time.
func (p *shapefileProcessor) VectorQuery(
	ctx context.Context,
	query primitives.VectorQueryRectangle,
) (iter.Seq2[engine.FeatureCollection, error], error) {
	validity := p.params.Time
	if validity == (primitives.TimeInterval{}) {
		validity = primitives.TimeInterval{Start: minInstant, End: maxInstant}
	}
	if !validity.Intersects(query.TimeInterval) {
		return func(func(engine.FeatureCollection, error) bool) {}, nil
	}

	return func(yield func(engine.FeatureCollection, error) bool) {
		reader, err := shp.Open(p.params.Path)
		if err != nil {
			yield(engine.FeatureCollection{}, eris.Wrapf(err, "open shapefile %s", p.params.Path))
			return
		}
		defer func() { _ = reader.Close() }()

		decoder := charmap.ISO8859_1.NewDecoder()
		batch := newShapefileBatch(p.descriptor)

		for reader.Next() {
			if ctx.Err() != nil {
				yield(engine.FeatureCollection{}, ctx.Err())
				return
			}
			_, shape := reader.Shape()
			g := shapeToGeom(shape)
			if g == nil {
				continue
			}
			if !geomIntersectsBBox(g, query.SpatialBounds) {
				continue
			}

			batch.geometries = append(batch.geometries, g)
			batch.times = append(batch.times, validity)
			for i, col := range p.descriptor.Columns {
				raw := strings.TrimRight(reader.Attribute(i), "\x00")
				decoded, decErr := decoder.String(raw)
				if decErr != nil {
					decoded = raw
				}
				batch.values[col.Name] = append(batch.values[col.Name], parseAttribute(col.Type, decoded))
			}

			if len(batch.times) == shapefileBatchSize {
				fc, err := batch.collect()
				if err != nil {
					yield(engine.FeatureCollection{}, err)
					return
				}
				if !yield(fc, nil) {
					return
				}
				batch = newShapefileBatch(p.descriptor)
			}
		}
		if err := reader.Err(); err != nil {
			yield(engine.FeatureCollection{}, eris.Wrapf(err, "read shapefile %s", p.params.Path))
			return
		}
		if len(batch.times) > 0 {
			fc, err := batch.collect()
			if err != nil {
				yield(engine.FeatureCollection{}, err)
				return
			}
			yield(fc, nil)
		}
	}, nil
}

const (
	minInstant primitives.TimeInstant = -8_334_601_228_800_000
	maxInstant primitives.TimeInstant = 8_210_266_876_799_999
)

type shapefileBatch struct {
	descriptor engine.VectorResultDescriptor
	geometries []geom.T
	times      []primitives.TimeInterval
	values     map[string][]any
}

func newShapefileBatch(descriptor engine.VectorResultDescriptor) *shapefileBatch {
	values := make(map[string][]any, len(descriptor.Columns))
	for _, col := range descriptor.Columns {
		values[col.Name] = nil
	}
	return &shapefileBatch{descriptor: descriptor, values: values}
}

func (b *shapefileBatch) collect() (engine.FeatureCollection, error) {
	return engine.NewFeatureCollection(
		b.descriptor.DataType, b.geometries, b.times, b.descriptor.Columns, b.values)
}

func parseAttribute(colType engine.FeatureDataType, value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	switch colType {
	case engine.FeatureInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case engine.FeatureFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return value
	}
}

// geomIntersectsBBox tests the geometry's envelope against the query box.
// The envelope may be degenerate (a point, an axis-aligned line), so the
// raw bounds are compared directly instead of going through the
// non-degenerate box constructor.
func geomIntersectsBBox(g geom.T, bbox primitives.BoundingBox2D) bool {
	b := g.Bounds()
	if b == nil {
		return false
	}
	return b.Min(0) <= bbox.UpperRight.X && b.Max(0) >= bbox.LowerLeft.X &&
		b.Min(1) <= bbox.UpperRight.Y && b.Max(1) >= bbox.LowerLeft.Y
}
