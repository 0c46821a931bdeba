package source

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/raster"
)

// ASCIIGrid is a decoded Esri ASCII grid: a row-major float buffer with
// the top row first, georeferenced by its lower-left corner.
type ASCIIGrid struct {
	Cols, Rows           int
	XLLCorner, YLLCorner float64
	CellSize             float64
	NoData               *float64
	Data                 []float64
}

// GeoTransform derives the north-up transform anchored at the grid's
// upper-left corner.
func (g ASCIIGrid) GeoTransform() raster.GeoTransform {
	return raster.GeoTransform{
		OriginCoordinate: primitives.Coordinate2D{
			X: g.XLLCorner,
			Y: g.YLLCorner + float64(g.Rows)*g.CellSize,
		},
		XPixelSize: g.CellSize,
		YPixelSize: -g.CellSize,
	}
}

// ValueAt returns the cell at (row, col) and whether it holds data.
func (g ASCIIGrid) ValueAt(row, col int) (float64, bool) {
	v := g.Data[row*g.Cols+col]
	if g.NoData != nil && v == *g.NoData {
		return v, false
	}
	return v, true
}

// ParseASCIIGrid decodes an Esri ASCII grid. Header keys are matched case
// insensitively; xllcenter/yllcenter variants are shifted to the corner
// form.
func ParseASCIIGrid(r io.Reader) (ASCIIGrid, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	scanner.Split(bufio.ScanWords)

	next := func() (string, error) {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", eris.Wrap(err, "read ascii grid")
			}
			return "", io.ErrUnexpectedEOF
		}
		return scanner.Text(), nil
	}

	var g ASCIIGrid
	xCenter, yCenter := false, false
	seen := map[string]bool{}

	// The header is a sequence of "key value" pairs until the first
	// numeric token, which starts the data section.
	var firstValue string
	for {
		token, err := next()
		if err != nil {
			return ASCIIGrid{}, eris.Wrap(err, "ascii grid header")
		}
		if _, numErr := strconv.ParseFloat(token, 64); numErr == nil {
			firstValue = token
			break
		}

		key := strings.ToLower(token)
		value, err := next()
		if err != nil {
			return ASCIIGrid{}, eris.Wrapf(err, "ascii grid header value for %s", key)
		}
		seen[key] = true
		switch key {
		case "ncols":
			g.Cols, err = strconv.Atoi(value)
		case "nrows":
			g.Rows, err = strconv.Atoi(value)
		case "xllcorner":
			g.XLLCorner, err = strconv.ParseFloat(value, 64)
		case "yllcorner":
			g.YLLCorner, err = strconv.ParseFloat(value, 64)
		case "xllcenter":
			g.XLLCorner, err = strconv.ParseFloat(value, 64)
			xCenter = true
		case "yllcenter":
			g.YLLCorner, err = strconv.ParseFloat(value, 64)
			yCenter = true
		case "cellsize":
			g.CellSize, err = strconv.ParseFloat(value, 64)
		case "nodata_value":
			var nd float64
			nd, err = strconv.ParseFloat(value, 64)
			g.NoData = &nd
		default:
			return ASCIIGrid{}, eris.Errorf("unknown ascii grid header key %q", key)
		}
		if err != nil {
			return ASCIIGrid{}, eris.Wrapf(err, "ascii grid header value for %s", key)
		}
	}

	if !seen["ncols"] || !seen["nrows"] || !seen["cellsize"] {
		return ASCIIGrid{}, eris.New("ascii grid header misses ncols/nrows/cellsize")
	}
	if g.Cols < 1 || g.Rows < 1 || g.CellSize <= 0 {
		return ASCIIGrid{}, eris.Errorf(
			"degenerate ascii grid header: %dx%d cells of size %g", g.Cols, g.Rows, g.CellSize)
	}
	if xCenter {
		g.XLLCorner -= g.CellSize / 2
	}
	if yCenter {
		g.YLLCorner -= g.CellSize / 2
	}

	g.Data = make([]float64, 0, g.Cols*g.Rows)
	v, err := strconv.ParseFloat(firstValue, 64)
	if err != nil {
		return ASCIIGrid{}, eris.Wrap(err, "ascii grid data")
	}
	g.Data = append(g.Data, v)
	for len(g.Data) < g.Cols*g.Rows {
		token, err := next()
		if err != nil {
			return ASCIIGrid{}, eris.Wrapf(err, "ascii grid data after %d of %d values",
				len(g.Data), g.Cols*g.Rows)
		}
		v, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return ASCIIGrid{}, eris.Wrap(err, "ascii grid data")
		}
		g.Data = append(g.Data, v)
	}
	return g, nil
}

// Encode writes the grid in Esri ASCII form, one data row per line.
func (g ASCIIGrid) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", g.Cols)
	fmt.Fprintf(bw, "nrows %d\n", g.Rows)
	fmt.Fprintf(bw, "xllcorner %g\n", g.XLLCorner)
	fmt.Fprintf(bw, "yllcorner %g\n", g.YLLCorner)
	fmt.Fprintf(bw, "cellsize %g\n", g.CellSize)
	if g.NoData != nil {
		fmt.Fprintf(bw, "nodata_value %g\n", *g.NoData)
	}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				if err := bw.WriteByte(' '); err != nil {
					return eris.Wrap(err, "write ascii grid")
				}
			}
			if _, err := bw.WriteString(strconv.FormatFloat(g.Data[row*g.Cols+col], 'g', -1, 64)); err != nil {
				return eris.Wrap(err, "write ascii grid")
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return eris.Wrap(err, "write ascii grid")
		}
	}
	return eris.Wrap(bw.Flush(), "flush ascii grid")
}
