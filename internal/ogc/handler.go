package ogc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/engine"
	"github.com/geoengine-bot/geoengine/internal/workflow"
)

// Handler serves stored raster workflows over WCS 1.1.
type Handler struct {
	workflows       workflow.Store
	execCtx         engine.ExecutionContext
	encoders        map[string]Encoder
	tileLimit       int
	externalAddress string
}

// HandlerOptions tune the coverage service.
type HandlerOptions struct {
	// TileLimit caps the tiles one GetCoverage request may consume. Zero
	// means unbounded.
	TileLimit int
	// ExternalAddress is the base URL advertised in capabilities
	// documents. Empty derives it from the incoming request.
	ExternalAddress string
}

// NewHandler wires the coverage service. PNG output is always registered.
func NewHandler(store workflow.Store, execCtx engine.ExecutionContext, opts HandlerOptions) *Handler {
	return &Handler{
		workflows:       store,
		execCtx:         execCtx,
		encoders:        map[string]Encoder{PNGEncoder{}.ContentType(): PNGEncoder{}},
		tileLimit:       opts.TileLimit,
		externalAddress: strings.TrimSuffix(opts.ExternalAddress, "/"),
	}
}

// Router mounts the WCS endpoint on a fresh router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))
	h.Mount(r)
	return r
}

// Mount registers the WCS endpoint on an existing router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/wcs/{workflow}", h.serveWcs)
}

func (h *Handler) serveWcs(w http.ResponseWriter, r *http.Request) {
	workflowID, err := uuid.Parse(chi.URLParam(r, "workflow"))
	if err != nil {
		http.Error(w, "invalid workflow id", http.StatusBadRequest)
		return
	}
	params := lowered(r.URL.Query())

	switch strings.ToLower(params["request"]) {
	case "getcapabilities":
		h.getCapabilities(w, r, workflowID)
	case "describecoverage":
		h.describeCoverage(w, r, workflowID)
	case "getcoverage":
		h.serveCoverage(w, r, workflowID, params)
	default:
		writeError(w, &UnknownRequestError{Request: params["request"]})
	}
}

func (h *Handler) getCapabilities(w http.ResponseWriter, r *http.Request, workflowID uuid.UUID) {
	// The workflow must exist, but capabilities are otherwise static.
	if _, err := h.workflows.Load(r.Context(), workflowID); err != nil {
		writeError(w, err)
		return
	}
	writeXML(w, capabilitiesDocument(h.wcsURL(r, workflowID), workflowID))
}

func (h *Handler) describeCoverage(w http.ResponseWriter, r *http.Request, workflowID uuid.UUID) {
	ctx := r.Context()

	wf, err := h.workflows.Load(ctx, workflowID)
	if err != nil {
		writeError(w, err)
		return
	}
	operator, err := wf.RasterOperator()
	if err != nil {
		writeError(w, err)
		return
	}
	initialized, err := operator.Initialize(ctx, h.execCtx)
	if err != nil {
		writeError(w, err)
		return
	}

	document, err := coverageDescription(workflowID, initialized.ResultDescriptor(), DefaultFormat)
	if err != nil {
		writeError(w, err)
		return
	}
	writeXML(w, document)
}

func (h *Handler) serveCoverage(
	w http.ResponseWriter,
	r *http.Request,
	workflowID uuid.UUID,
	params map[string]string,
) {
	req, err := ParseCoverageRequest(params)
	if err != nil {
		writeError(w, err)
		return
	}

	encoder, body, err := h.getCoverage(r.Context(), workflowID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", encoder.ContentType())
	_, _ = w.Write(body)
}

// wcsURL is the endpoint address advertised in capabilities documents.
func (h *Handler) wcsURL(r *http.Request, workflowID uuid.UUID) string {
	base := h.externalAddress
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/wcs/%s", base, workflowID)
}

func writeXML(w http.ResponseWriter, document string) {
	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(document))
}

// writeError maps domain errors onto HTTP status codes. Everything not
// recognized as a client mistake is a 500 and logged.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("wcs request failed", zap.Error(err))
	}
	http.Error(w, err.Error(), status)
}

func statusOf(err error) int {
	var (
		notFound       *workflow.NotFoundError
		unknownDataset *engine.UnknownDatasetError

		version      *VersionNotSupportedError
		missing      *MissingParameterError
		request      *UnknownRequestError
		origin       *GridOriginMismatchError
		crs          *BoundingBoxCrsMismatchError
		format       *UnsupportedFormatError
		invalidSpec  *engine.InvalidOperatorSpecError
		invalidType  *engine.InvalidTypeError
		unknownOp    *workflow.UnknownOperatorError
		tileLimit    *engine.TileLimitError
		dataType     *engine.UnsupportedDataTypeError
	)

	switch {
	case errors.As(err, &notFound), errors.As(err, &unknownDataset):
		return http.StatusNotFound
	case errors.As(err, &version),
		errors.As(err, &missing),
		errors.As(err, &request),
		errors.As(err, &origin),
		errors.As(err, &crs),
		errors.As(err, &format),
		errors.As(err, &invalidSpec),
		errors.As(err, &invalidType),
		errors.As(err, &unknownOp),
		errors.As(err, &dataType):
		return http.StatusBadRequest
	case errors.As(err, &tileLimit):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
