package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app carries the configuration shared by all subcommands.
type app struct {
	cfg     *config.Config
	verbose bool
	output  string
}

func NewRootCmd() *cobra.Command {
	a := &app{cfg: &config.Config{}}
	var baseURL string

	cmd := &cobra.Command{
		Use:   "econdata",
		Short: "Browse and curate listings and products of a Clair econdata server",
		Long: `Econdata is a client for the Clair econdata REST API.

It lists listings, products and search tasks, and records which products
appear in a listing. These records are used as training data for the
product recognition.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Econdata server URL (default $ECONDATA_BASE_URL or http://localhost:8000)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Verbose logging")
	cmd.PersistentFlags().StringVarP(&a.output, "output", "o", "table", "Output format (table, json, yaml)")

	cmd.AddCommand(newListingsCmd(a))
	cmd.AddCommand(newProductsCmd(a))
	cmd.AddCommand(newSearchTasksCmd(a))
	cmd.AddCommand(newPILCmd(a))
	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newServeCmd(a))

	return cmd
}

// client builds an API client from the configuration.
func (a *app) client() (*api.Client, error) {
	c, err := api.NewClient(a.cfg.BaseURL,
		api.WithTimeout(a.cfg.RequestTimeout),
		api.WithCSRF(a.cfg.CSRFCookie, a.cfg.CSRFHeader),
		api.WithCookie(a.cfg.CSRFCookie, a.cfg.CSRFToken),
		api.WithCookie(a.cfg.SessionCookie, a.cfg.SessionID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, nil
}
