package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/pdfprocessor/service/internal/config"
	appMiddleware "github.com/pdfprocessor/service/internal/middleware"
	"github.com/pdfprocessor/service/internal/trigger"

	_ "github.com/pdfprocessor/service/docs/swagger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the trigger endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.log.Sync() }()
			return serve(a)
		},
	}
}

func newRouter(a *app) http.Handler {
	source := a.store.Container(config.SourceContainer)
	eventGrid := trigger.NewEventGridHandler(a.copier, source, a.log)
	minioEvents := trigger.NewMinioHandler(a.copier, source, a.log)
	functions := trigger.NewFunctionsHandler(a.copier, source, config.DestinationContainer,
		a.cfg.OutputMode == config.OutputBinding, a.log)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(a.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// Functions host invokes custom handlers at /{functionName}.
	r.Post("/process_blob_upload", functions.Handle)

	r.Route("/api", func(r chi.Router) {
		r.Options("/events", eventGrid.Validate)
		r.Post("/events", eventGrid.Handle)
		r.Post("/minio/events", minioEvents.Handle)
	})
	return r
}

// newServer sets no read or write deadline; a copy may run as long as the
// storage transport allows.
func newServer(a *app) *http.Server {
	return &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           newRouter(a),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func serve(a *app) error {
	srv := newServer(a)

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", a.cfg.AppEnv),
			zap.String("output_mode", a.cfg.OutputMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.log.Error("server error", zap.Error(err))
		return err
	case <-quit:
	}
	a.log.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.log.Error("forced shutdown", zap.Error(err))
		return err
	}

	a.log.Info("server stopped")
	return nil
}
