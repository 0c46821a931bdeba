package workflow

import (
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/processing"
	"github.com/geoengine-bot/geoengine/internal/source"
)

// Type is the result kind of a workflow's root operator.
type Type string

const (
	TypeRaster Type = "Raster"
	TypeVector Type = "Vector"
)

// Workflow is a stored operator graph. The operator tree stays in its
// wire form until a consumer instantiates it.
type Workflow struct {
	Type     Type            `json:"type"`
	Operator json.RawMessage `json:"operator"`
}

// Validate decodes the operator tree once so malformed graphs are
// rejected at registration, not at query time.
func (w Workflow) Validate() error {
	switch w.Type {
	case TypeRaster:
		_, err := DecodeRasterOperator(w.Operator)
		return err
	case TypeVector:
		_, err := DecodeVectorOperator(w.Operator)
		return err
	default:
		return eris.Errorf("workflow: unknown workflow type %q", w.Type)
	}
}

// RasterOperator instantiates the graph of a raster workflow.
func (w Workflow) RasterOperator() (engine.RasterOperator, error) {
	if w.Type != TypeRaster {
		return nil, &engine.InvalidTypeError{Expected: string(TypeRaster), Found: string(w.Type)}
	}
	return DecodeRasterOperator(w.Operator)
}

// VectorOperator instantiates the graph of a vector workflow.
func (w Workflow) VectorOperator() (engine.VectorOperator, error) {
	if w.Type != TypeVector {
		return nil, &engine.InvalidTypeError{Expected: string(TypeVector), Found: string(w.Type)}
	}
	return DecodeVectorOperator(w.Operator)
}

// UnknownOperatorError reports an operator type outside the closed set.
type UnknownOperatorError struct {
	Type string
}

func (e *UnknownOperatorError) Error() string {
	return "unknown operator type " + e.Type
}

// operatorEnvelope is the wire shape shared by all operators: a type tag,
// opaque params and child operators grouped by result kind.
type operatorEnvelope struct {
	Type    string          `json:"type"`
	Params  json.RawMessage `json:"params"`
	Sources struct {
		Raster []json.RawMessage `json:"raster"`
		Vector []json.RawMessage `json:"vector"`
	} `json:"sources"`
}

func decodeEnvelope(data []byte) (operatorEnvelope, error) {
	var env operatorEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return operatorEnvelope{}, eris.Wrap(err, "workflow: decoding operator")
	}
	if env.Type == "" {
		return operatorEnvelope{}, &engine.InvalidOperatorSpecError{Reason: "operator misses a type"}
	}
	return env, nil
}

func decodeParams(env operatorEnvelope, out any) error {
	if len(env.Params) == 0 {
		return &engine.InvalidOperatorSpecError{Reason: env.Type + " misses params"}
	}
	if err := json.Unmarshal(env.Params, out); err != nil {
		return eris.Wrapf(err, "workflow: decoding %s params", env.Type)
	}
	return nil
}

func requireSources(env operatorEnvelope, rasters, vectors int) error {
	if len(env.Sources.Raster) != rasters || len(env.Sources.Vector) != vectors {
		return &engine.InvalidOperatorSpecError{
			Reason: env.Type + " has the wrong number of sources",
		}
	}
	return nil
}

// DecodeRasterOperator builds one raster operator tree from its wire form.
// The operator set is closed; unknown types fail with
// *UnknownOperatorError.
func DecodeRasterOperator(data []byte) (engine.RasterOperator, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case "RasterSource":
		var params source.RasterSourceParams
		if err := decodeParams(env, &params); err != nil {
			return nil, err
		}
		if err := requireSources(env, 0, 0); err != nil {
			return nil, err
		}
		return &source.RasterSource{Params: params}, nil

	case "Reprojection":
		var params processing.ReprojectionParams
		if err := decodeParams(env, &params); err != nil {
			return nil, err
		}
		if err := requireSources(env, 1, 0); err != nil {
			return nil, err
		}
		child, err := DecodeRasterOperator(env.Sources.Raster[0])
		if err != nil {
			return nil, err
		}
		return &processing.Reprojection{Params: params, Source: child}, nil

	default:
		return nil, &UnknownOperatorError{Type: env.Type}
	}
}

// DecodeVectorOperator builds one vector operator tree from its wire form.
func DecodeVectorOperator(data []byte) (engine.VectorOperator, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case "ShapefileSource":
		var params source.ShapefileSourceParams
		if err := decodeParams(env, &params); err != nil {
			return nil, err
		}
		if err := requireSources(env, 0, 0); err != nil {
			return nil, err
		}
		return &source.ShapefileSource{Params: params}, nil

	case "VectorReprojection":
		var params processing.ReprojectionParams
		if err := decodeParams(env, &params); err != nil {
			return nil, err
		}
		if err := requireSources(env, 0, 1); err != nil {
			return nil, err
		}
		child, err := DecodeVectorOperator(env.Sources.Vector[0])
		if err != nil {
			return nil, err
		}
		return &processing.VectorReprojection{Params: params, Source: child}, nil

	case "RasterVectorJoin":
		var params processing.RasterVectorJoinParams
		if err := decodeParams(env, &params); err != nil {
			return nil, err
		}
		if len(env.Sources.Vector) != 1 || len(env.Sources.Raster) == 0 {
			return nil, &engine.InvalidOperatorSpecError{
				Reason: "RasterVectorJoin needs one vector and at least one raster source",
			}
		}
		vector, err := DecodeVectorOperator(env.Sources.Vector[0])
		if err != nil {
			return nil, err
		}
		rasters := make([]engine.RasterOperator, len(env.Sources.Raster))
		for i, raw := range env.Sources.Raster {
			rasters[i], err = DecodeRasterOperator(raw)
			if err != nil {
				return nil, err
			}
		}
		return &processing.RasterVectorJoin{Params: params, Vector: vector, Rasters: rasters}, nil

	default:
		return nil, &UnknownOperatorError{Type: env.Type}
	}
}
