package engine

import (
	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// RasterResultDescriptor is the immutable contract of a raster operator's
// output, fixed at initialization time.
type RasterResultDescriptor struct {
	DataType         raster.DataType               `json:"dataType"`
	SpatialReference *spatialref.SpatialReference  `json:"spatialReference,omitempty"`
	Measurement      primitives.Measurement        `json:"measurement"`
	NoData           *float64                      `json:"noDataValue,omitempty"`
}

// MustSpatialReference returns the CRS or a MissingSpatialReferenceError.
func (d RasterResultDescriptor) MustSpatialReference() (spatialref.SpatialReference, error) {
	if d.SpatialReference == nil {
		return spatialref.SpatialReference{}, &MissingSpatialReferenceError{}
	}
	return *d.SpatialReference, nil
}

// VectorDataType is the geometry kind of a vector result. Data marks
// attribute-only collections without geometry.
type VectorDataType string

const (
	VectorData            VectorDataType = "Data"
	VectorMultiPoint      VectorDataType = "MultiPoint"
	VectorMultiLineString VectorDataType = "MultiLineString"
	VectorMultiPolygon    VectorDataType = "MultiPolygon"
)

// IsGeometry reports whether the type carries geometries.
func (t VectorDataType) IsGeometry() bool { return t != VectorData }

// FeatureDataType is the type of one attribute column.
type FeatureDataType string

const (
	FeatureInt   FeatureDataType = "int"
	FeatureFloat FeatureDataType = "float"
	FeatureText  FeatureDataType = "text"
)

// Column is one named, typed attribute column of a vector result.
type Column struct {
	Name string          `json:"name"`
	Type FeatureDataType `json:"type"`
}

// VectorResultDescriptor is the immutable contract of a vector operator's
// output. Column names are unique and ordered.
type VectorResultDescriptor struct {
	DataType         VectorDataType               `json:"dataType"`
	SpatialReference *spatialref.SpatialReference `json:"spatialReference,omitempty"`
	Columns          []Column                     `json:"columns"`
}

// NewVectorResultDescriptor validates column name uniqueness.
func NewVectorResultDescriptor(
	dataType VectorDataType,
	srs *spatialref.SpatialReference,
	columns []Column,
) (VectorResultDescriptor, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c.Name]; dup {
			return VectorResultDescriptor{}, eris.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	return VectorResultDescriptor{DataType: dataType, SpatialReference: srs, Columns: columns}, nil
}

// Column returns the column with the given name.
func (d VectorResultDescriptor) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}
