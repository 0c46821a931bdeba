package export

import (
	"fmt"
	"iter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/geoengine-bot/geoengine/internal/engine"
)

const featureSheetName = "features"

// WriteXLSX drains the feature batches into one worksheet at path. The
// header names the geometry, the validity interval and the descriptor's
// attribute columns; geometries are written as WKT.
func WriteXLSX(
	path string,
	descriptor engine.VectorResultDescriptor,
	batches iter.Seq2[engine.FeatureCollection, error],
) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet(featureSheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("geometry")
	header.AddCell().SetString("time_start")
	header.AddCell().SetString("time_end")
	for _, column := range descriptor.Columns {
		header.AddCell().SetString(column.Name)
	}

	for fc, err := range batches {
		if err != nil {
			return err
		}
		if err := appendBatch(sheet, descriptor, fc); err != nil {
			return err
		}
	}

	return eris.Wrapf(file.Save(path), "xlsx: save %s", path)
}

func appendBatch(
	sheet *xlsx.Sheet,
	descriptor engine.VectorResultDescriptor,
	fc engine.FeatureCollection,
) error {
	for i := 0; i < fc.Len(); i++ {
		row := sheet.AddRow()

		geometry := ""
		if fc.Geometries[i] != nil {
			encoded, err := wkt.Marshal(fc.Geometries[i])
			if err != nil {
				return eris.Wrap(err, "xlsx: encoding geometry")
			}
			geometry = encoded
		}
		row.AddCell().SetString(geometry)
		row.AddCell().SetString(fc.Times[i].Start.AsTime().UTC().Format(time.RFC3339))
		row.AddCell().SetString(fc.Times[i].End.AsTime().UTC().Format(time.RFC3339))

		for _, column := range descriptor.Columns {
			setCell(row.AddCell(), fc.Values[column.Name][i])
		}
	}
	return nil
}

func setCell(cell *xlsx.Cell, value any) {
	switch v := value.(type) {
	case nil:
		cell.SetString("")
	case string:
		cell.SetString(v)
	case float64:
		cell.SetFloat(v)
	case int64:
		cell.SetInt64(v)
	case int:
		cell.SetInt(v)
	default:
		cell.SetString(fmt.Sprint(v))
	}
}
