package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/eikewelk/econdata/internal/handlers"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port, shortlist string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the JSON API for browsing and curating listings",
		Long: `Starts an HTTP server exposing the listings, products and search tasks
of the econdata server, plus editing of the products recorded for a listing.

Endpoints:
  GET    /api/listings?order=-time&q=text
  GET    /api/products
  POST   /api/products/reload
  GET    /api/search-tasks
  GET    /api/listings/{id}/products
  POST   /api/listings/{id}/products      {"name": "Nikon D70"}
  DELETE /api/listings/{id}/products/{record}`,
		Example: `  # Start server on default port 8888
  econdata serve

  # Offer two products for quick selection
  econdata serve --port 3000 --shortlist 12,57`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}

			// Set up routes
			mux := http.NewServeMux()
			handlers.New(client, parseShortlist(shortlist)).Routes(mux)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           mux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Econdata API available", "addr", addr, "url", "http://localhost"+addr, "upstream", a.cfg.BaseURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give in-flight requests 5 seconds to finish
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
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")
	cmd.Flags().StringVar(&shortlist, "shortlist", "", "Comma separated product ids offered for quick selection")

	return cmd
}

func parseShortlist(s string) []models.ID {
	var ids []models.ID
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, models.ID(part))
		}
	}
	return ids
}
