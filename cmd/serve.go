package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/geoengine-bot/geoengine/internal/ogc"
	"github.com/geoengine-bot/geoengine/internal/workflow"
)

var (
	servePort            int
	serveExternalAddress string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the coverage and workflow server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		wcs := ogc.NewHandler(env.Store, env.ExecCtx, ogc.HandlerOptions{
			TileLimit:       cfg.Wcs.TileLimit,
			ExternalAddress: serveExternalAddress,
		})

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"}) //nolint:errcheck
		})
		r.Post("/workflows", func(w http.ResponseWriter, req *http.Request) {
			registerWorkflow(w, req, env.Store)
		})
		r.Get("/workflows", func(w http.ResponseWriter, req *http.Request) {
			listWorkflows(w, req, env.Store)
		})
		r.Get("/datasets", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(env.Registry.List()) //nolint:errcheck
		})
		wcs.Mount(r)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Int("datasets", len(env.Registry.List())),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	serveCmd.Flags().StringVar(&serveExternalAddress, "external-address", "",
		"base URL advertised in capabilities documents")
	rootCmd.AddCommand(serveCmd)
}

func registerWorkflow(w http.ResponseWriter, r *http.Request, store workflow.Store) {
	var wf workflow.Workflow
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	id, err := store.Register(r.Context(), wf)
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error":%q}`, err.Error()), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]uuid.UUID{"id": id}) //nolint:errcheck
}

func listWorkflows(w http.ResponseWriter, r *http.Request, store workflow.Store) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	listings, err := store.List(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("listing workflows", zap.Error(err))
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(listings) //nolint:errcheck
}
