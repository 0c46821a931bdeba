package ogc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
	"github.com/geoengine-bot/geoengine/internal/source"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
	"github.com/geoengine-bot/geoengine/internal/workflow"
)

// ---- fixtures ----

// wcsContext registers a 4x4 elevation asset at (0,0)..(4,4) with cell
// size 1, valid over [0, 1000).
func wcsContext(t *testing.T) *engine.MockExecutionContext {
	t.Helper()

	grid := source.ASCIIGrid{
		Cols: 4, Rows: 4,
		XLLCorner: 0, YLLCorner: 0,
		CellSize: 1,
		Data: []float64{
			1, 2, 3, 4,
			5, 6, 7, 8,
			9, 10, 11, 12,
			13, 14, 15, 16,
		},
	}
	var payload bytes.Buffer
	require.NoError(t, grid.Encode(&payload))

	execCtx := engine.NewMockExecutionContext()
	execCtx.SetTilingSpecification(engine.TilingSpecification{TileRows: 2, TileCols: 2})
	execCtx.AddAsset("mem://elevation.asc", payload.Bytes())

	srs := spatialref.Epsg4326()
	noData := 0.0
	execCtx.AddRasterMetaData(
		engine.DatasetID{Dataset: "test:elevation"},
		engine.StaticRasterMetaData{
			Descriptor: engine.RasterResultDescriptor{
				DataType:         raster.U8,
				SpatialReference: &srs,
				Measurement:      primitives.Measurement{Name: "elevation", Unit: "m"},
				NoData:           &noData,
			},
			Info: engine.LoadingInfo{Parts: []engine.LoadingInfoPart{{
				Time:     primitives.TimeInterval{Start: 0, End: 1000},
				Location: "mem://elevation.asc",
				GeoTransform: raster.GeoTransform{
					OriginCoordinate: primitives.Coordinate2D{X: 0, Y: 4},
					XPixelSize:       1,
					YPixelSize:       -1,
				},
				Width:  4,
				Height: 4,
				Band:   1,
			}}},
		},
	)
	return execCtx
}

const elevationWorkflowJSON = `{
	"type": "RasterSource",
	"params": {
		"dataset": {
			"provider": "00000000-0000-0000-0000-000000000000",
			"dataset": "test:elevation"
		}
	}
}`

func wcsServer(t *testing.T, opts HandlerOptions) (*httptest.Server, uuid.UUID) {
	t.Helper()

	store := workflow.NewMemoryStore()
	id, err := store.Register(context.Background(), workflow.Workflow{
		Type:     workflow.TypeRaster,
		Operator: []byte(elevationWorkflowJSON),
	})
	require.NoError(t, err)

	handler := NewHandler(store, wcsContext(t), opts)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return server, id
}

func getWcs(t *testing.T, server *httptest.Server, workflowID uuid.UUID, params url.Values) *http.Response {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/wcs/%s?%s", server.URL, workflowID, params.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() }) //nolint:errcheck
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return buf.String()
}

// coverageParams are a valid GetCoverage request for the full asset in
// EPSG:4326 axis order (latitude first).
func coverageParams() url.Values {
	return url.Values{
		"service":     {"WCS"},
		"request":     {"GetCoverage"},
		"version":     {"1.1.1"},
		"gridbasecrs": {"urn:ogc:def:crs:EPSG::4326"},
		"boundingbox": {"0,0,4,4,urn:ogc:def:crs:EPSG::4326"},
		"gridorigin":  {"4,0"},
		"gridoffsets": {"1,1"},
		"time":        {"1970-01-01T00:00:00Z"},
	}
}

// ---- request parsing ----

func TestParseCoverageRequest_AxisOrderSwapForGeographicCrs(t *testing.T) {
	req, err := ParseCoverageRequest(map[string]string{
		"version":     "1.1.1",
		"gridbasecrs": "urn:ogc:def:crs:EPSG::4326",
		"boundingbox": "20,-10,80,50,urn:ogc:def:crs:EPSG::4326",
		"gridorigin":  "80,-10",
		"gridoffsets": "0.1,0.1",
		"time":        "2014-01-01T00:00:00.0Z",
	})
	require.NoError(t, err)

	assert.Equal(t, primitives.Coordinate2D{X: -10, Y: 80}, req.BoundingBox.UpperLeft)
	assert.Equal(t, primitives.Coordinate2D{X: 50, Y: 20}, req.BoundingBox.LowerRight)
	require.NotNil(t, req.GridOrigin)
	assert.Equal(t, primitives.Coordinate2D{X: -10, Y: 80}, *req.GridOrigin)
	require.NotNil(t, req.GridOffsets)
	assert.Equal(t, primitives.SpatialResolution{X: 0.1, Y: 0.1}, *req.GridOffsets)
	require.NotNil(t, req.BoundingBoxCrs)
	assert.Equal(t, spatialref.Epsg4326(), *req.BoundingBoxCrs)
	require.NotNil(t, req.Time)
	assert.True(t, req.Time.IsInstant())
	assert.Equal(t, DefaultFormat, req.Format)
}

func TestParseCoverageRequest_ProjectedCrsKeepsAxisOrder(t *testing.T) {
	req, err := ParseCoverageRequest(map[string]string{
		"version":     "1.1.1",
		"gridbasecrs": "EPSG:3857",
		"boundingbox": "0,0,400000,800000",
	})
	require.NoError(t, err)

	assert.Equal(t, primitives.Coordinate2D{X: 0, Y: 800000}, req.BoundingBox.UpperLeft)
	assert.Equal(t, primitives.Coordinate2D{X: 400000, Y: 0}, req.BoundingBox.LowerRight)
	assert.Nil(t, req.BoundingBoxCrs)
}

func TestParseCoverageRequest_RejectsUnknownVersion(t *testing.T) {
	var version *VersionNotSupportedError
	_, err := ParseCoverageRequest(map[string]string{"version": "1.0.0"})
	require.ErrorAs(t, err, &version)
	assert.Equal(t, "1.0.0", version.Version)
}

func TestParseCoverageRequest_RequiresGridBaseCrs(t *testing.T) {
	var missing *MissingParameterError
	_, err := ParseCoverageRequest(map[string]string{"version": "1.1.1"})
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "gridbasecrs", missing.Name)
}

func TestLowered_FoldsParameterCase(t *testing.T) {
	params := lowered(url.Values{
		"REQUEST": {"GetCoverage"},
		"Version": {"1.1.1"},
	})
	assert.Equal(t, "GetCoverage", params["request"])
	assert.Equal(t, "1.1.1", params["version"])
}

// ---- capabilities ----

func TestGetCapabilities_ListsTheWorkflowCoverage(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	resp := getWcs(t, server, id, url.Values{
		"service": {"WCS"},
		"request": {"GetCapabilities"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/xml", resp.Header.Get("Content-Type"))

	body := readBody(t, resp)
	assert.Contains(t, body, `<wcs:Capabilities version="1.1.1"`)
	assert.Contains(t, body, fmt.Sprintf("<wcs:Identifier>%s</wcs:Identifier>", id))
	assert.Contains(t, body, fmt.Sprintf("/wcs/%s?", id))
}

func TestGetCapabilities_UnknownWorkflow(t *testing.T) {
	server, _ := wcsServer(t, HandlerOptions{})

	resp := getWcs(t, server, uuid.New(), url.Values{"request": {"GetCapabilities"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDescribeCoverage_UsesTheWorkflowCrs(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	resp := getWcs(t, server, id, url.Values{
		"service": {"WCS"},
		"request": {"DescribeCoverage"},
		"version": {"1.1.1"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := readBody(t, resp)
	assert.Contains(t, body, "<wcs:GridBaseCRS>urn:ogc:def:crs:EPSG::4326</wcs:GridBaseCRS>")
	// Geographic corners are written latitude first.
	assert.Contains(t, body, "<ows:LowerCorner>-90 -180</ows:LowerCorner>")
	assert.Contains(t, body, "<ows:UpperCorner>90 180</ows:UpperCorner>")
	assert.Contains(t, body, "<wcs:SupportedFormat>image/png</wcs:SupportedFormat>")
}

// ---- get coverage ----

func TestGetCoverage_RendersPng(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{TileLimit: 100})

	resp := getWcs(t, server, id, coverageParams())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())

	// The gradient spans 1..16, darkest at the minimum.
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 0, A: 255},
		color.NRGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		color.NRGBAModel.Convert(img.At(3, 3)))
}

func TestGetCoverage_ReprojectsForeignCrsRequests(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{TileLimit: 100})

	params := url.Values{
		"service":     {"WCS"},
		"request":     {"GetCoverage"},
		"version":     {"1.1.1"},
		"gridbasecrs": {"EPSG:3857"},
		"boundingbox": {"0,0,400000,400000"},
		"gridoffsets": {"100000,100000"},
		"time":        {"1970-01-01T00:00:00Z"},
	}
	resp := getWcs(t, server, id, params)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
}

func TestGetCoverage_DefaultsResolutionAndTime(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{TileLimit: 100000})

	params := coverageParams()
	params.Del("gridoffsets")
	params.Del("time")
	params.Del("gridorigin")

	resp := getWcs(t, server, id, params)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 256, 256), img.Bounds())
}

func TestGetCoverage_RejectsUnknownVersion(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	params := coverageParams()
	params.Set("version", "1.0.0")
	resp := getWcs(t, server, id, params)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "not supported")
}

func TestGetCoverage_RejectsGridOriginMismatch(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	params := coverageParams()
	params.Set("gridorigin", "0,0")
	resp := getWcs(t, server, id, params)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "grid origin")
}

func TestGetCoverage_RejectsBoundingBoxCrsMismatch(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	params := coverageParams()
	params.Set("gridbasecrs", "EPSG:3857")
	resp := getWcs(t, server, id, params)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "grid base crs")
}

func TestGetCoverage_RejectsUnsupportedFormat(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	params := coverageParams()
	params.Set("format", "image/tiff")
	resp := getWcs(t, server, id, params)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "unsupported output format")
}

func TestGetCoverage_UnknownWorkflow(t *testing.T) {
	server, _ := wcsServer(t, HandlerOptions{})

	resp := getWcs(t, server, uuid.New(), coverageParams())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetCoverage_TileLimitExceeded(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{TileLimit: 1})

	resp := getWcs(t, server, id, coverageParams())
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestServeWcs_UnknownRequest(t *testing.T) {
	server, id := wcsServer(t, HandlerOptions{})

	resp := getWcs(t, server, id, url.Values{"request": {"GetLegendGraphic"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, readBody(t, resp), "unknown wcs request")
}

func TestServeWcs_InvalidWorkflowID(t *testing.T) {
	server, _ := wcsServer(t, HandlerOptions{})

	resp, err := http.Get(server.URL + "/wcs/not-a-uuid?request=GetCapabilities")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
