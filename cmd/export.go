package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/collections"
	"github.com/eikewelk/econdata/internal/export"
	"github.com/eikewelk/econdata/internal/junction"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/eikewelk/econdata/internal/paging"
	"github.com/eikewelk/econdata/internal/storage/postgres"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export training data and collection snapshots",
	}

	cmd.AddCommand(newExportTrainingCmd(a))
	cmd.AddCommand(newExportProductsCmd(a))
	cmd.AddCommand(newExportListingsCmd(a))
	return cmd
}

func newExportTrainingCmd(a *app) *cobra.Command {
	var out, listing string
	var toPostgres bool

	cmd := &cobra.Command{
		Use:   "training",
		Short: "Export products-in-listing records with resolved products",
		Long: `Export all products-in-listing records, with their product references
resolved against the product catalog.

The file format is chosen by the extension of --out (.yaml, .json or
.parquet). With --postgres the rows replace the contents of the
products_in_listings table of the database at $ECONDATA_POSTGRES_DSN;
together with --listing only that listing's rows are replaced.`,
		Example: `  # Parquet file for model training
  econdata export training --out data/training.parquet

  # Records of one listing as YAML
  econdata export training --listing 2017-01-01-Ebay-123478901234567 --out pil.yaml

  # Mirror into PostgreSQL
  econdata export training --postgres`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" && !toPostgres {
				return errors.New("nothing to do: set --out and/or --postgres")
			}
			if toPostgres && a.cfg.PostgresDSN == "" {
				return errors.New("--postgres requires ECONDATA_POSTGRES_DSN")
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cmd.Context(), client)
			if err != nil {
				return err
			}

			var filters url.Values
			if listing != "" {
				filters = url.Values{junction.ListingFilter: {listing}}
			}
			loader := paging.New(client, api.ProductsInListingPath,
				paging.WithMapper(junction.Resolver(catalog)),
				paging.WithProgress[junction.Record](logProgress("products-in-listings")))
			records, err := loader.Load(cmd.Context(), filters)
			if err != nil {
				return err
			}

			rows := export.Rows(records)
			unresolved := 0
			for _, r := range records {
				if r.State == junction.Unresolved {
					unresolved++
				}
			}
			if unresolved > 0 {
				slog.Warn("Records reference products missing from the catalog", "count", unresolved)
			}

			if out != "" {
				if err := export.WriteFile(out, export.NewSnapshot(a.cfg.BaseURL, "products-in-listings", rows)); err != nil {
					return err
				}
				printSaved(cmd, out, len(rows))
			}

			if toPostgres {
				store, err := postgres.Open(cmd.Context(), a.cfg.PostgresDSN)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := storeRows(cmd.Context(), store, listing, rows); err != nil {
					return err
				}
				slog.Info("Training data stored in PostgreSQL", "table", "products_in_listings", "listing", listing, "rows", len(rows))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output file (.yaml, .json or .parquet)")
	cmd.Flags().StringVar(&listing, "listing", "", "Only export the records of this listing")
	cmd.Flags().BoolVar(&toPostgres, "postgres", false, "Store the rows in PostgreSQL")
	return cmd
}

// rowStore is the part of *postgres.TrainingStore used by the export.
type rowStore interface {
	Replace(ctx context.Context, rows []export.TrainingRow) error
	ReplaceListing(ctx context.Context, listingID string, rows []export.TrainingRow) error
}

// storeRows replaces the whole table, or only the rows of listing when it
// is set.
func storeRows(ctx context.Context, store rowStore, listing string, rows []export.TrainingRow) error {
	if listing == "" {
		return store.Replace(ctx, rows)
	}
	return store.ReplaceListing(ctx, listing, rows)
}

func newExportProductsCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "Export the product catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cmd.Context(), client)
			if err != nil {
				return err
			}
			if err := export.WriteFile(out, export.NewSnapshot(a.cfg.BaseURL, "products", catalog)); err != nil {
				return err
			}
			printSaved(cmd, out, len(catalog))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "products.yaml", "Output file (.yaml, .json or .parquet)")
	return cmd
}

func newExportListingsCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Export all listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := export.FormatFromPath(out)
			if err != nil {
				return err
			}
			if format == "parquet" {
				return errors.New("listings can be exported as .yaml or .json only")
			}

			client, err := a.client()
			if err != nil {
				return err
			}
			b := collections.NewListings(client, paging.WithProgress[models.Listing](logProgress("listings")))
			if err := b.Load(cmd.Context(), nil); err != nil {
				return err
			}
			items, err := b.Items("")
			if err != nil {
				return err
			}
			if err := export.WriteFile(out, export.NewSnapshot(a.cfg.BaseURL, "listings", items)); err != nil {
				return err
			}
			printSaved(cmd, out, len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "listings.yaml", "Output file (.yaml or .json)")
	return cmd
}

func printSaved(cmd *cobra.Command, path string, n int) {
	absPath, _ := filepath.Abs(path)
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d records to %s\n", n, absPath)
}
