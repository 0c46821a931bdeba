package stac

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

// DefaultPageLimit is the item count requested per search page.
const DefaultPageLimit = 500

// DefaultLastAssetValidity is the synthetic validity window of the newest
// asset, which has no successor to bound it.
const DefaultLastAssetValidity = time.Second

// ResolverOptions tunes temporal resolution.
type ResolverOptions struct {
	PageLimit         int
	LastAssetValidity time.Duration
}

func (o ResolverOptions) withDefaults() ResolverOptions {
	if o.PageLimit <= 0 {
		o.PageLimit = DefaultPageLimit
	}
	if o.LastAssetValidity <= 0 {
		o.LastAssetValidity = DefaultLastAssetValidity
	}
	return o
}

// Resolver turns raster queries against one zone/band dataset into load
// instructions by searching the catalog and deriving per-asset validity.
// It implements engine.RasterMetaData.
type Resolver struct {
	client     *Client
	collection string
	zone       spatialref.SpatialReference
	band       string
	descriptor engine.RasterResultDescriptor
	opts       ResolverOptions
}

// NewResolver creates a resolver for one dataset. The descriptor's CRS is
// the zone CRS.
func NewResolver(
	client *Client,
	collection string,
	zone spatialref.SpatialReference,
	band string,
	descriptor engine.RasterResultDescriptor,
	opts ResolverOptions,
) *Resolver {
	return &Resolver{
		client:     client,
		collection: collection,
		zone:       zone,
		band:       band,
		descriptor: descriptor,
		opts:       opts.withDefaults(),
	}
}

// ResultDescriptor returns the dataset's raster contract.
func (r *Resolver) ResultDescriptor(context.Context) (engine.RasterResultDescriptor, error) {
	return r.descriptor, nil
}

// LoadingInfo searches the catalog for the query window and derives one
// load instruction per asset whose validity intersects the query time.
func (r *Resolver) LoadingInfo(
	ctx context.Context,
	query primitives.RasterQueryRectangle,
) (engine.LoadingInfo, error) {
	params, err := r.searchParams(query)
	if err != nil {
		return engine.LoadingInfo{}, err
	}

	all, err := r.client.LoadAllFeatures(ctx, params)
	if err != nil {
		return engine.LoadingInfo{}, err
	}
	zap.L().Debug("catalog features returned", zap.Int("count", len(all)))

	// All features of the zone are requested so each asset's validity can
	// be bounded by its successor.
	features := make([]Feature, 0, len(all))
	for _, f := range all {
		if f.Properties.ProjEpsg != nil && *f.Properties.ProjEpsg == r.zone.Code {
			features = append(features, f)
		}
	}
	sort.SliceStable(features, func(i, j int) bool {
		return features[i].Properties.Datetime.Before(features[j].Properties.Datetime)
	})
	zap.L().Debug("catalog features in zone",
		zap.String("zone", r.zone.String()),
		zap.Int("count", len(features)),
	)

	var parts []engine.LoadingInfoPart
	for i, feature := range features {
		start := primitives.InstantFromTime(feature.Properties.Datetime)
		var end primitives.TimeInstant
		if i < len(features)-1 {
			end = primitives.InstantFromTime(features[i+1].Properties.Datetime)
		} else {
			end = primitives.InstantFromTime(
				feature.Properties.Datetime.Add(r.opts.LastAssetValidity))
		}
		validity, err := primitives.NewTimeInterval(start, end)
		if err != nil {
			return engine.LoadingInfo{}, err
		}
		if !validity.Intersects(query.TimeInterval) {
			continue
		}

		asset, ok := feature.Assets[r.band]
		if !ok {
			return engine.LoadingInfo{}, &NoSuchBandError{Band: r.band}
		}
		part, err := r.loadingInfoPart(validity, asset)
		if err != nil {
			return engine.LoadingInfo{}, err
		}
		parts = append(parts, part)
	}
	zap.L().Debug("load instructions generated", zap.Int("count", len(parts)))

	return engine.LoadingInfo{Parts: parts}, nil
}

func (r *Resolver) loadingInfoPart(
	validity primitives.TimeInterval,
	asset Asset,
) (engine.LoadingInfoPart, error) {
	width, height, err := asset.Shape()
	if err != nil {
		return engine.LoadingInfoPart{}, err
	}
	transform, err := asset.GeoTransform()
	if err != nil {
		return engine.LoadingInfoPart{}, err
	}
	return engine.LoadingInfoPart{
		Time:            validity,
		Location:        asset.Href,
		GeoTransform:    transform,
		Width:           width,
		Height:          height,
		Band:            1,
		NoDataOnMissing: true,
	}, nil
}

func (r *Resolver) searchParams(query primitives.RasterQueryRectangle) (SearchParams, error) {
	projector, err := spatialref.NewProjector(r.zone, spatialref.Epsg4326())
	if err != nil {
		return SearchParams{}, err
	}
	bbox, err := projector.ProjectBBoxClipped(query.SpatialBounds.AsBoundingBox())
	if err != nil {
		return SearchParams{}, err
	}

	// The start is shifted back one minute so the most recent acquisition
	// before the query start is included.
	start := query.TimeInterval.Start.AsTime().Add(-time.Minute)
	end := query.TimeInterval.End.AsTime()

	return SearchParams{
		Collections: []string{r.collection},
		Bbox:        bbox,
		Start:       start,
		End:         end,
		Limit:       r.opts.PageLimit,
	}, nil
}
