package engine

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/geoengine-bot/geoengine/internal/primitives"
)

// FeatureCollection is one batch of vector features: parallel slices of
// geometries, validity intervals and attribute values. Geometry may be nil
// for attribute-only (Data) collections.
type FeatureCollection struct {
	DataType   VectorDataType
	Geometries []geom.T
	Times      []primitives.TimeInterval
	Columns    []Column
	// Values holds one slice per column, indexed like Geometries. Cell
	// types follow the column's FeatureDataType (int64, float64, string);
	// nil marks a missing value.
	Values map[string][]any
}

// NewFeatureCollection validates that all parallel slices agree in length.
func NewFeatureCollection(
	dataType VectorDataType,
	geometries []geom.T,
	times []primitives.TimeInterval,
	columns []Column,
	values map[string][]any,
) (FeatureCollection, error) {
	n := len(times)
	if dataType.IsGeometry() && len(geometries) != n {
		return FeatureCollection{}, eris.Errorf(
			"feature collection has %d geometries but %d time intervals", len(geometries), n)
	}
	for _, c := range columns {
		col, ok := values[c.Name]
		if !ok {
			return FeatureCollection{}, eris.Errorf("feature collection misses values for column %q", c.Name)
		}
		if len(col) != n {
			return FeatureCollection{}, eris.Errorf(
				"column %q has %d values for %d features", c.Name, len(col), n)
		}
	}
	return FeatureCollection{
		DataType:   dataType,
		Geometries: geometries,
		Times:      times,
		Columns:    columns,
		Values:     values,
	}, nil
}

// Len returns the number of features in the batch.
func (f FeatureCollection) Len() int { return len(f.Times) }

// WithColumn returns a copy of the collection extended by one column.
func (f FeatureCollection) WithColumn(column Column, values []any) (FeatureCollection, error) {
	if _, exists := f.Values[column.Name]; exists {
		return FeatureCollection{}, eris.Errorf("column %q already exists", column.Name)
	}
	if len(values) != f.Len() {
		return FeatureCollection{}, eris.Errorf(
			"column %q has %d values for %d features", column.Name, len(values), f.Len())
	}

	columns := make([]Column, len(f.Columns), len(f.Columns)+1)
	copy(columns, f.Columns)
	columns = append(columns, column)

	merged := make(map[string][]any, len(f.Values)+1)
	for name, vals := range f.Values {
		merged[name] = vals
	}
	merged[column.Name] = values

	out := f
	out.Columns = columns
	out.Values = merged
	return out, nil
}
