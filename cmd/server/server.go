// Package server implements the read-only HTTP status server.
package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/berth-cd/berth/internal/app"
	"github.com/berth-cd/berth/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
)

func NewCmdServer() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the read-only status API server",
		Long: `Serve slot status and deployment history as JSON. The server never mutates
state; deployments still go through the CLI.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	return cmd
}

func runServer() error {
	config := app.GetConfig()

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	slotHandlers := handlers.NewSlotHandlers(app.GetDeployer())
	slotHandlers.RegisterRoutes(r)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Failed to write health check response",
				"layer", "server",
				"operation", "health_check",
				"error", err)
		}
	})

	address := fmt.Sprintf("%s:%d", config.HTTPHost, config.HTTPPort)
	slog.Info("Server starting", "address", fmt.Sprintf("http://%s", address))
	return http.ListenAndServe(address, r)
}
