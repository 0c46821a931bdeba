package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/export"
	"github.com/geoengine-bot/geoengine/internal/ogc"
	"github.com/geoengine-bot/geoengine/internal/primitives"
	"github.com/geoengine-bot/geoengine/internal/workflow"
)

var (
	queryWorkflowID string
	queryFile       string
	queryBBox       string
	queryTime       string
	queryResolution string
	queryOutput     string
)

// queryGridCells sizes the output grid when no resolution is given.
const queryGridCells = 256

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Execute a workflow over a spatio-temporal window",
	Long: "Executes a stored or file-based workflow over the given bounding box and time. " +
		"Raster results are written as PNG, vector results as XLSX.",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		wf, err := resolveWorkflow(cmd.Context(), env)
		if err != nil {
			return err
		}
		bbox, err := parseBBox(queryBBox)
		if err != nil {
			return err
		}
		interval, err := parseQueryTime(queryTime)
		if err != nil {
			return err
		}
		resolution, err := parseResolution(queryResolution, bbox)
		if err != nil {
			return err
		}

		switch wf.Type {
		case workflow.TypeRaster:
			return runRasterQuery(cmd.Context(), env, wf, bbox, interval, resolution)
		case workflow.TypeVector:
			return runVectorQuery(cmd.Context(), env, wf, bbox, interval, resolution)
		default:
			return eris.Errorf("unknown workflow type %q", wf.Type)
		}
	},
}

func init() {
	queryCmd.Flags().StringVar(&queryWorkflowID, "workflow", "", "stored workflow id")
	queryCmd.Flags().StringVar(&queryFile, "file", "", "workflow definition file")
	queryCmd.Flags().StringVar(&queryBBox, "bbox", "", "query window as minx,miny,maxx,maxy")
	queryCmd.Flags().StringVar(&queryTime, "time", "", "query time, RFC 3339 (default now)")
	queryCmd.Flags().StringVar(&queryResolution, "resolution", "", "pixel size as x,y (default window/256)")
	queryCmd.Flags().StringVar(&queryOutput, "output", "", "output file path")
	_ = queryCmd.MarkFlagRequired("bbox")
	_ = queryCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(queryCmd)
}

func resolveWorkflow(ctx context.Context, env *engineEnv) (workflow.Workflow, error) {
	switch {
	case queryWorkflowID != "" && queryFile != "":
		return workflow.Workflow{}, eris.New("--workflow and --file are mutually exclusive")
	case queryWorkflowID != "":
		id, err := uuid.Parse(queryWorkflowID)
		if err != nil {
			return workflow.Workflow{}, eris.Wrap(err, "parse workflow id")
		}
		return env.Store.Load(ctx, id)
	case queryFile != "":
		return readWorkflowFile(queryFile)
	default:
		return workflow.Workflow{}, eris.New("either --workflow or --file is required")
	}
}

func runRasterQuery(
	ctx context.Context,
	env *engineEnv,
	wf workflow.Workflow,
	bbox primitives.BoundingBox2D,
	interval primitives.TimeInterval,
	resolution primitives.SpatialResolution,
) error {
	operator, err := wf.RasterOperator()
	if err != nil {
		return err
	}
	initialized, err := operator.Initialize(ctx, env.ExecCtx)
	if err != nil {
		return err
	}
	srs, err := initialized.ResultDescriptor().MustSpatialReference()
	if err != nil {
		return err
	}
	processor, err := initialized.QueryProcessor()
	if err != nil {
		return err
	}

	query := primitives.RasterQueryRectangle{
		SpatialBounds:     primitives.PartitionFromBoundingBox(bbox),
		TimeInterval:      interval,
		SpatialResolution: resolution,
	}
	coverage, err := ogc.RenderCoverage(ctx, processor, query, cfg.Wcs.TileLimit, srs)
	if err != nil {
		return err
	}

	body, err := ogc.PNGEncoder{}.Encode(coverage)
	if err != nil {
		return err
	}
	if err := os.WriteFile(queryOutput, body, 0o644); err != nil {
		return eris.Wrapf(err, "write %s", queryOutput)
	}

	zap.L().Info("raster query complete",
		zap.String("output", queryOutput),
		zap.String("data_type", coverage.DataType.String()),
	)
	return nil
}

func runVectorQuery(
	ctx context.Context,
	env *engineEnv,
	wf workflow.Workflow,
	bbox primitives.BoundingBox2D,
	interval primitives.TimeInterval,
	resolution primitives.SpatialResolution,
) error {
	operator, err := wf.VectorOperator()
	if err != nil {
		return err
	}
	initialized, err := operator.Initialize(ctx, env.ExecCtx)
	if err != nil {
		return err
	}
	typed, err := initialized.QueryProcessor()
	if err != nil {
		return err
	}

	query := primitives.VectorQueryRectangle{
		SpatialBounds:     bbox,
		TimeInterval:      interval,
		SpatialResolution: resolution,
	}
	batches, err := typed.Processor.VectorQuery(ctx, query)
	if err != nil {
		return err
	}

	if err := export.WriteXLSX(queryOutput, initialized.ResultDescriptor(), batches); err != nil {
		return err
	}

	zap.L().Info("vector query complete", zap.String("output", queryOutput))
	return nil
}

func parseBBox(raw string) (primitives.BoundingBox2D, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return primitives.BoundingBox2D{}, eris.Errorf("bbox must be minx,miny,maxx,maxy, got %q", raw)
	}
	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return primitives.BoundingBox2D{}, eris.Wrapf(err, "parse bbox coordinate %q", part)
		}
		values[i] = v
	}
	return primitives.NewBoundingBox2D(
		primitives.Coordinate2D{X: values[0], Y: values[1]},
		primitives.Coordinate2D{X: values[2], Y: values[3]},
	)
}

func parseQueryTime(raw string) (primitives.TimeInterval, error) {
	if raw == "" {
		return primitives.NewInstant(primitives.InstantFromTime(time.Now())), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return primitives.TimeInterval{}, eris.Wrapf(err, "parse time %q", raw)
	}
	return primitives.NewInstant(primitives.InstantFromTime(t)), nil
}

func parseResolution(raw string, bbox primitives.BoundingBox2D) (primitives.SpatialResolution, error) {
	if raw == "" {
		return primitives.NewSpatialResolution(
			bbox.SizeX()/queryGridCells,
			bbox.SizeY()/queryGridCells,
		)
	}
	x, y, ok := strings.Cut(raw, ",")
	if !ok {
		return primitives.SpatialResolution{}, eris.Errorf("resolution must be x,y, got %q", raw)
	}
	rx, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil {
		return primitives.SpatialResolution{}, eris.Wrapf(err, "parse resolution %q", x)
	}
	ry, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil {
		return primitives.SpatialResolution{}, eris.Wrapf(err, "parse resolution %q", y)
	}
	return primitives.NewSpatialResolution(rx, ry)
}
