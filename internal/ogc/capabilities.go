package ogc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/spatialref"
)

const capabilitiesTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<wcs:Capabilities version="1.1.1" updateSequence="152"
        xmlns:wcs="http://www.opengis.net/wcs/1.1.1"
        xmlns:xlink="http://www.w3.org/1999/xlink"
        xmlns:ogc="http://www.opengis.net/ogc"
        xmlns:ows="http://www.opengis.net/ows/1.1"
        xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
        xsi:schemaLocation="http://www.opengis.net/wcs/1.1.1 http://schemas.opengis.net/wcs/1.1/wcsGetCapabilities.xsd">
    <ows:ServiceIdentification>
        <ows:Title>Web Coverage Service</ows:Title>
        <ows:ServiceType>WCS</ows:ServiceType>
        <ows:ServiceTypeVersion>1.1.1</ows:ServiceTypeVersion>
        <ows:Fees>NONE</ows:Fees>
        <ows:AccessConstraints>NONE</ows:AccessConstraints>
    </ows:ServiceIdentification>
    <ows:ServiceProvider>
        <ows:ProviderName>geoengine</ows:ProviderName>
        <ows:ServiceContact/>
    </ows:ServiceProvider>
    <ows:OperationsMetadata>
        <ows:Operation name="GetCapabilities">
            <ows:DCP>
                <ows:HTTP>
                    <ows:Get xlink:href="%[1]s?"/>
                </ows:HTTP>
            </ows:DCP>
        </ows:Operation>
        <ows:Operation name="DescribeCoverage">
            <ows:DCP>
                <ows:HTTP>
                    <ows:Get xlink:href="%[1]s?"/>
                </ows:HTTP>
            </ows:DCP>
        </ows:Operation>
        <ows:Operation name="GetCoverage">
            <ows:DCP>
                <ows:HTTP>
                    <ows:Get xlink:href="%[1]s?"/>
                </ows:HTTP>
            </ows:DCP>
        </ows:Operation>
    </ows:OperationsMetadata>
    <wcs:Contents>
        <wcs:CoverageSummary>
            <ows:Title>Workflow %[2]s</ows:Title>
            <ows:WGS84BoundingBox>
                <ows:LowerCorner>-180.0 -90.0</ows:LowerCorner>
                <ows:UpperCorner>180.0 90.0</ows:UpperCorner>
            </ows:WGS84BoundingBox>
            <wcs:Identifier>%[2]s</wcs:Identifier>
        </wcs:CoverageSummary>
    </wcs:Contents>
</wcs:Capabilities>`

// capabilitiesDocument renders the static GetCapabilities response for
// one workflow coverage.
func capabilitiesDocument(wcsURL string, workflowID uuid.UUID) string {
	return fmt.Sprintf(capabilitiesTemplate, wcsURL, workflowID)
}

const describeCoverageTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<wcs:CoverageDescriptions
        xmlns:wcs="http://www.opengis.net/wcs/1.1.1"
        xmlns:xlink="http://www.w3.org/1999/xlink"
        xmlns:ogc="http://www.opengis.net/ogc"
        xmlns:ows="http://www.opengis.net/ows/1.1"
        xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
        xsi:schemaLocation="http://www.opengis.net/wcs/1.1.1 http://schemas.opengis.net/wcs/1.1/wcsDescribeCoverage.xsd">
    <wcs:CoverageDescription>
        <ows:Title>Workflow %[1]s</ows:Title>
        <wcs:Identifier>%[1]s</wcs:Identifier>
        <wcs:Domain>
            <wcs:SpatialDomain>
                <ows:BoundingBox crs="%[2]s" dimensions="2">
                    <ows:LowerCorner>%[3]s</ows:LowerCorner>
                    <ows:UpperCorner>%[4]s</ows:UpperCorner>
                </ows:BoundingBox>
                <wcs:GridCRS>
                    <wcs:GridBaseCRS>%[2]s</wcs:GridBaseCRS>
                    <wcs:GridType>urn:ogc:def:method:WCS:1.1:2dSimpleGrid</wcs:GridType>
                    <wcs:GridOrigin>%[5]s</wcs:GridOrigin>
                    <wcs:GridOffsets>%[6]s</wcs:GridOffsets>
                    <wcs:GridCS>urn:ogc:def:cs:OGC:0.0:Grid2dSquareCS</wcs:GridCS>
                </wcs:GridCRS>
            </wcs:SpatialDomain>
        </wcs:Domain>
        <wcs:SupportedCRS>%[7]s</wcs:SupportedCRS>
        <wcs:SupportedFormat>%[8]s</wcs:SupportedFormat>
    </wcs:CoverageDescription>
</wcs:CoverageDescriptions>`

// coverageDescription renders the DescribeCoverage response from the
// workflow's result descriptor. Corners, origin and offsets are written in
// the axis order of the coverage CRS.
func coverageDescription(
	workflowID uuid.UUID,
	descriptor engine.RasterResultDescriptor,
	format string,
) (string, error) {
	srs, err := descriptor.MustSpatialReference()
	if err != nil {
		return "", err
	}
	area, err := srs.AreaOfUseProjected()
	if err != nil {
		return "", err
	}

	// A nominal 256x256 grid over the full area of use.
	offsetX := area.SizeX() / 256
	offsetY := -area.SizeY() / 256

	lower := axisOrdered(area.LowerLeft, srs)
	upper := axisOrdered(area.UpperRight, srs)
	origin := axisOrdered(
		primitives.Coordinate2D{X: area.LowerLeft.X, Y: area.UpperRight.Y}, srs)
	offsets := fmt.Sprintf("%v %v", offsetX, offsetY)
	if axisSwapped(srs) {
		offsets = fmt.Sprintf("%v %v", offsetY, offsetX)
	}

	return fmt.Sprintf(describeCoverageTemplate,
		workflowID, srs.Urn(), lower, upper, origin, offsets, srs, format,
	), nil
}

// axisOrdered renders a coordinate pair in the CRS axis order.
func axisOrdered(c primitives.Coordinate2D, srs spatialref.SpatialReference) string {
	if axisSwapped(srs) {
		return fmt.Sprintf("%v %v", c.Y, c.X)
	}
	return fmt.Sprintf("%v %v", c.X, c.Y)
}
