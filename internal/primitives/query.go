package primitives

// RasterQueryRectangle is the spatial/temporal/resolution window a raster
// query processor is asked to satisfy. It is immutable once constructed;
// processors derive all tile bounds from it.
type RasterQueryRectangle struct {
	SpatialBounds     SpatialPartition2D `json:"spatialBounds"`
	TimeInterval      TimeInterval       `json:"timeInterval"`
	SpatialResolution SpatialResolution  `json:"spatialResolution"`
}

// VectorQueryRectangle is the query window for vector processors. Vector
// data uses lower-left/upper-right bounds instead of raster partitions.
type VectorQueryRectangle struct {
	SpatialBounds     BoundingBox2D     `json:"spatialBounds"`
	TimeInterval      TimeInterval      `json:"timeInterval"`
	SpatialResolution SpatialResolution `json:"spatialResolution"`
}

// AsVectorQuery converts a raster query window into the vector form.
func (q RasterQueryRectangle) AsVectorQuery() VectorQueryRectangle {
	return VectorQueryRectangle{
		SpatialBounds:     q.SpatialBounds.AsBoundingBox(),
		TimeInterval:      q.TimeInterval,
		SpatialResolution: q.SpatialResolution,
	}
}

// AsRasterQuery converts a vector query window into the raster form.
func (q VectorQueryRectangle) AsRasterQuery() RasterQueryRectangle {
	return RasterQueryRectangle{
		SpatialBounds:     PartitionFromBoundingBox(q.SpatialBounds),
		TimeInterval:      q.TimeInterval,
		SpatialResolution: q.SpatialResolution,
	}
}
