package stac

import (
	"time"

	"github.com/geoengine-bot/geoengine/internal/raster"
)

// SearchResponse is one page of a STAC item search.
type SearchResponse struct {
	Features []Feature     `json:"features"`
	Context  SearchContext `json:"context"`
}

// SearchContext carries the pagination counters of a search page.
type SearchContext struct {
	Page     int `json:"page"`
	Limit    int `json:"limit"`
	Matched  int `json:"matched"`
	Returned int `json:"returned"`
}

// Feature is one catalog item: acquisition properties plus a named asset
// map.
type Feature struct {
	ID         string            `json:"id"`
	Properties FeatureProperties `json:"properties"`
	Assets     map[string]Asset  `json:"assets"`
}

// FeatureProperties are the item properties the engine consumes. ProjEpsg
// is the projection extension's zone code; items without it are skipped.
type FeatureProperties struct {
	Datetime time.Time `json:"datetime"`
	ProjEpsg *uint32   `json:"proj:epsg"`
}

// Asset is one downloadable file of an item with its projection extension
// metadata.
type Asset struct {
	Href string `json:"href"`
	// ProjShape is [rows, cols].
	ProjShape []int `json:"proj:shape"`
	// ProjTransform is the affine transform in rasterio order:
	// [xSize, xRot, originX, yRot, ySize, originY], optionally padded to
	// nine elements with the homogeneous row.
	ProjTransform []float64 `json:"proj:transform"`
}

// Shape returns the pixel dimensions as (width, height).
func (a Asset) Shape() (width, height int, err error) {
	if len(a.ProjShape) != 2 {
		return 0, 0, &InvalidBboxError{Href: a.Href}
	}
	return a.ProjShape[1], a.ProjShape[0], nil
}

// GeoTransform reorders the affine transform into the engine's form and
// rejects rotated transforms.
func (a Asset) GeoTransform() (raster.GeoTransform, error) {
	t := a.ProjTransform
	if len(t) != 6 && len(t) != 9 {
		return raster.GeoTransform{}, &InvalidGeoTransformError{Transform: t}
	}
	gt, err := raster.GeoTransformFromArray([6]float64{t[2], t[0], t[1], t[5], t[3], t[4]})
	if err != nil {
		return raster.GeoTransform{}, &InvalidGeoTransformError{Transform: t}
	}
	return gt, nil
}
