package provider

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/geoengine-bot/geoengine/internal/colorizer"
	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
	"github.com/geoengine-bot/geoengine/internal/stac"
)

// SentinelCollection is the catalog collection the provider searches.
const SentinelCollection = "sentinel-s2-l2a-cogs"

// Band is one spectral band of the Sentinel-2 L2A product.
type Band struct {
	Name     string
	DataType raster.DataType
	NoData   float64
}

// Zone is one UTM grid zone the product is published in.
type Zone struct {
	Name string
	Epsg uint32
}

func sentinelBands() []Band {
	return []Band{
		{Name: "B01", DataType: raster.U16, NoData: 0},
		{Name: "B02", DataType: raster.U16, NoData: 0},
		{Name: "B03", DataType: raster.U16, NoData: 0},
		{Name: "B04", DataType: raster.U16, NoData: 0},
		{Name: "B08", DataType: raster.U16, NoData: 0},
		{Name: "SCL", DataType: raster.U8, NoData: 0},
	}
}

func sentinelZones() []Zone {
	return []Zone{
		{Name: "UTM32N", Epsg: 32632},
		{Name: "UTM36S", Epsg: 32736},
	}
}

// SentinelOptions tunes the catalog client and temporal resolution shared
// by all of a provider's datasets.
type SentinelOptions struct {
	Client   stac.ClientOptions
	Resolver stac.ResolverOptions
}

// SentinelProvider offers the Sentinel-2 L2A cloud-optimized GeoTIFFs as
// one dataset per zone and band, resolved through a STAC catalog.
type SentinelProvider struct {
	id       uuid.UUID
	name     string
	datasets map[string]sentinelDataset
}

type sentinelDataset struct {
	listing  DatasetListing
	resolver *stac.Resolver
}

// NewSentinelProvider builds the zone x band dataset table against the
// catalog search endpoint.
func NewSentinelProvider(id uuid.UUID, name, apiURL string, opts SentinelOptions) *SentinelProvider {
	client := stac.NewClient(apiURL, opts.Client)

	datasets := make(map[string]sentinelDataset)
	for _, zone := range sentinelZones() {
		for _, band := range sentinelBands() {
			key := zone.Name + ":" + band.Name
			srs := spatialref.New(spatialref.Epsg, zone.Epsg)
			noData := band.NoData
			descriptor := engine.RasterResultDescriptor{
				DataType:         band.DataType,
				SpatialReference: &srs,
				NoData:           &noData,
			}

			datasets[key] = sentinelDataset{
				listing: DatasetListing{
					ID:               engine.DatasetID{Provider: id, Dataset: key},
					Name:             fmt.Sprintf("Sentinel S2 L2A COGS %s:%s", zone.Name, band.Name),
					SourceOperator:   "RasterSource",
					ResultDescriptor: descriptor,
					Symbology:        &RasterSymbology{Opacity: 1.0, Colorizer: reflectanceColorizer()},
				},
				resolver: stac.NewResolver(
					client, SentinelCollection, srs, band.Name, descriptor, opts.Resolver),
			}
		}
	}

	return &SentinelProvider{id: id, name: name, datasets: datasets}
}

// reflectanceColorizer maps the product's reflectance range onto a
// white-to-black ramp. All bands share it for now.
func reflectanceColorizer() colorizer.Colorizer {
	c, err := colorizer.NewLinearGradient([]colorizer.Breakpoint{
		{Value: 0, Color: colorizer.White()},
		{Value: 10_000, Color: colorizer.Black()},
	}, colorizer.Transparent(), colorizer.Transparent())
	if err != nil {
		panic(err)
	}
	return c
}

func (p *SentinelProvider) ID() uuid.UUID { return p.id }

func (p *SentinelProvider) Name() string { return p.name }

// List returns all zone/band datasets, sorted by name.
func (p *SentinelProvider) List() []DatasetListing {
	listings := make([]DatasetListing, 0, len(p.datasets))
	for _, d := range p.datasets {
		listings = append(listings, d.listing)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
	return listings
}

// MetaData returns the catalog resolver for a zone:band dataset id.
func (p *SentinelProvider) MetaData(id engine.DatasetID) (engine.RasterMetaData, error) {
	if id.Provider != p.id {
		return nil, &engine.UnknownDatasetError{Dataset: id.String()}
	}
	d, ok := p.datasets[id.Dataset]
	if !ok {
		return nil, &engine.UnknownDatasetError{Dataset: id.String()}
	}
	return d.resolver, nil
}
