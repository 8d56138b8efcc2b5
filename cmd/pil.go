package cmd

import (
	"context"
	"fmt"

	"github.com/eikewelk/econdata/internal/api"
	"github.com/eikewelk/econdata/internal/collections"
	"github.com/eikewelk/econdata/internal/junction"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/spf13/cobra"
)

func newPILCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pil",
		Aliases: []string{"products-in-listing"},
		Short:   "Show and edit which products appear in a listing",
		Long: `Show and edit the products-in-listing records of one listing.

Every record created here is marked as training data. Adding a product
without a name records that the listing contains no interesting product.`,
	}

	cmd.AddCommand(newPILListCmd(a))
	cmd.AddCommand(newPILAddCmd(a))
	cmd.AddCommand(newPILRemoveCmd(a))
	return cmd
}

// loadCatalog fetches the whole product catalog.
func loadCatalog(ctx context.Context, client *api.Client) ([]models.Product, error) {
	b := collections.NewProducts(client)
	if err := b.Load(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to load product catalog: %w", err)
	}
	return b.Items("")
}

func (a *app) editor(ctx context.Context, listingID string) (*junction.Editor, error) {
	client, err := a.client()
	if err != nil {
		return nil, err
	}
	catalog, err := loadCatalog(ctx, client)
	if err != nil {
		return nil, err
	}
	return junction.NewEditor(client, models.ID(listingID), catalog, nil), nil
}

func (a *app) printRecords(cmd *cobra.Command, records []junction.Record) error {
	return render(cmd.OutOrStdout(), a.output, records, table[junction.Record]{
		headers: []string{"RECORD", "STATE", "PRODUCT", "TRAINING"},
		row: func(r junction.Record) []string {
			return []string{string(r.ID), r.State.String(), r.Label, fmt.Sprint(r.IsTrainingData)}
		},
	})
}

func newPILListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list LISTING_ID",
		Short: "Show the products recorded for a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.editor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := e.Initialize(cmd.Context()); err != nil {
				return err
			}
			return a.printRecords(cmd, e.Records())
		},
	}
}

func newPILAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add LISTING_ID [PRODUCT_NAME]",
		Short: "Record that a product appears in a listing",
		Example: `  # The listing shows a Nikon D70
  econdata pil add 2017-01-01-Ebay-123478901234567 "Nikon D70"

  # The listing contains no interesting product
  econdata pil add 2017-01-01-Ebay-123478901234567`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			e, err := a.editor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := e.AddProduct(cmd.Context(), name); err != nil {
				return err
			}
			return a.printRecords(cmd, e.Records())
		},
	}
}

func newPILRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove LISTING_ID RECORD_ID",
		Short: "Delete a products-in-listing record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.editor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := e.RemoveProduct(cmd.Context(), models.ID(args[1])); err != nil {
				return err
			}
			return a.printRecords(cmd, e.Records())
		},
	}
}
