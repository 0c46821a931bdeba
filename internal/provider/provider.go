package provider

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/geoengine-bot/geoengine/internal/colorizer"
	"github.com/geoengine-bot/geoengine/internal/engine"
)

// RasterSymbology is the default rendering hint attached to a listing.
type RasterSymbology struct {
	Opacity   float64             `json:"opacity"`
	Colorizer colorizer.Colorizer `json:"colorizer"`
}

// DatasetListing describes one dataset a provider offers.
type DatasetListing struct {
	ID               engine.DatasetID              `json:"id"`
	Name             string                        `json:"name"`
	Description      string                        `json:"description"`
	SourceOperator   string                        `json:"sourceOperator"`
	ResultDescriptor engine.RasterResultDescriptor `json:"resultDescriptor"`
	Symbology        *RasterSymbology              `json:"symbology,omitempty"`
}

// Provider enumerates external datasets and resolves their metadata.
type Provider interface {
	ID() uuid.UUID
	Name() string
	List() []DatasetListing
	MetaData(id engine.DatasetID) (engine.RasterMetaData, error)
}

// Registry routes dataset lookups to the provider named by the id.
type Registry struct {
	providers map[uuid.UUID]Provider
}

// NewRegistry indexes the providers by id.
func NewRegistry(providers ...Provider) *Registry {
	indexed := make(map[uuid.UUID]Provider, len(providers))
	for _, p := range providers {
		indexed[p.ID()] = p
	}
	return &Registry{providers: indexed}
}

// Provider returns the provider with the given id.
func (r *Registry) Provider(id uuid.UUID) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// List concatenates all providers' listings, sorted by name.
func (r *Registry) List() []DatasetListing {
	var listings []DatasetListing
	for _, p := range r.providers {
		listings = append(listings, p.List()...)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].Name < listings[j].Name })
	return listings
}

// RasterMetaData resolves a dataset id through its provider. It serves as
// the metadata half of an execution context.
func (r *Registry) RasterMetaData(_ context.Context, id engine.DatasetID) (engine.RasterMetaData, error) {
	p, ok := r.providers[id.Provider]
	if !ok {
		return nil, &engine.UnknownDatasetError{Dataset: id.String()}
	}
	return p.MetaData(id)
}
