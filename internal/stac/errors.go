package stac

import "fmt"

// NoSuchBandError reports an item that lacks the requested band asset.
type NoSuchBandError struct {
	Band string
}

func (e *NoSuchBandError) Error() string {
	return fmt.Sprintf("catalog item has no asset for band %q", e.Band)
}

// InvalidBboxError reports an asset without a usable pixel shape.
type InvalidBboxError struct {
	Href string
}

func (e *InvalidBboxError) Error() string {
	return fmt.Sprintf("asset %s carries no valid proj:shape", e.Href)
}

// InvalidGeoTransformError reports an asset transform the engine cannot
// express.
type InvalidGeoTransformError struct {
	Transform []float64
}

func (e *InvalidGeoTransformError) Error() string {
	return fmt.Sprintf("asset carries an invalid proj:transform %v", e.Transform)
}

// ResponseError reports a catalog response that could not be decoded. Body
// keeps the raw payload for diagnosis.
type ResponseError struct {
	URL  string
	Body string
	Err  error
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("undecodable catalog response from %s: %v", e.URL, e.Err)
}

func (e *ResponseError) Unwrap() error { return e.Err }
