package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"github.com/lehigh-university-libraries/plantid/internal/config"
	"github.com/lehigh-university-libraries/plantid/internal/handlers"
	"github.com/lehigh-university-libraries/plantid/internal/imagesource"
	"github.com/lehigh-university-libraries/plantid/internal/storage"
	"github.com/lehigh-university-libraries/plantid/internal/workflow"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the plant identification web service",
		Long: `Starts the plant identification API on the specified port.

Clients create a session, then either upload a photo or start the server's camera,
watch the live preview and capture a frame. Each photo is sent once to the configured
vision model (PLANTID_PROVIDER: gemini, openai or ollama).`,
		Example: `  # Start server on default port 8888
  plantid serve

  # Start server on custom port
  plantid serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			identifier, closeIdentifier, err := newIdentifier(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeIdentifier(); err != nil {
					slog.Warn("Failed to close inference client", "err", err)
				}
			}()

			device := newCameraDevice(cfg)
			previews := storage.NewPreviewStore("/previews/")
			normalizer := imagesource.New(previews)

			handler := handlers.New(previews, func() *workflow.Workflow {
				controller := camera.NewController(device, camera.DefaultConstraints())
				return workflow.New(controller, normalizer, identifier, previews)
			})
			sessions := handler.Sessions()
			defer sessions.CloseAll()

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: handler.Routes(),
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Plant identifier available", "addr", addr, "url", "http://localhost"+addr, "provider", cfg.Provider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			sweep := time.NewTicker(cfg.SessionTTL / 2)
			defer sweep.Stop()

			// Wait for context cancellation (Ctrl+C) or server error
			for {
				select {
				case <-sweep.C:
					if n := sessions.Sweep(cfg.SessionTTL); n > 0 {
						slog.Info("Closed idle sessions", "count", n)
					}
				case <-cmd.Context().Done():
					slog.Info("Shutting down server...")
					// Give server 5 seconds to shut down gracefully
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := server.Shutdown(shutdownCtx); err != nil {
						slog.Error("Server shutdown failed", "err", err)
						return err
					}
					slog.Info("Server stopped")
					return nil
				case err := <-serverErr:
					return err
				}
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
