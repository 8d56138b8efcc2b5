package cmd

import (
	"log/slog"
	"strconv"

	"github.com/eikewelk/econdata/internal/collections"
	"github.com/eikewelk/econdata/internal/models"
	"github.com/eikewelk/econdata/internal/paging"
	"github.com/spf13/cobra"
)

func logProgress(path string) paging.ProgressFunc {
	return func(loaded, page int) {
		slog.Debug("Loading collection", "path", path, "page", page, "loaded", loaded)
	}
}

func newListingsCmd(a *app) *cobra.Command {
	var order, query string

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "List listings, newest first",
		Example: `  # All listings containing "nikon", cheapest first
  econdata listings --filter nikon --order price

  # As YAML
  econdata listings -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			b := collections.NewListings(client, paging.WithProgress[models.Listing](logProgress("listings")))
			if order != "" {
				b.SetOrder(order)
			}
			if err := b.Load(cmd.Context(), nil); err != nil {
				return err
			}
			items, err := b.Items(query)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, items, table[models.Listing]{
				headers: []string{"ID", "TIME", "PRICE", "CURRENCY", "STATUS", "TITLE"},
				row: func(l models.Listing) []string {
					t := "-"
					if l.Time != nil {
						t = l.Time.Format("2006-01-02 15:04")
					}
					return []string{string(l.ID), t, fmtFloat(l.Price), l.Currency, l.Status, truncate(l.Title, 60)}
				},
			})
		},
	}

	cmd.Flags().StringVar(&order, "order", "", `Field to order by, "-" prefix for descending (default "-time")`)
	cmd.Flags().StringVar(&query, "filter", "", "Only show listings containing this text")
	return cmd
}

func newProductsCmd(a *app) *cobra.Command {
	var order, query string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the product catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			b := collections.NewProducts(client, paging.WithProgress[models.Product](logProgress("products")))
			b.SetOrder(order)
			if err := b.Load(cmd.Context(), nil); err != nil {
				return err
			}
			items, err := b.Items(query)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, items, table[models.Product]{
				headers: []string{"ID", "NAME", "CATEGORIES"},
				row: func(p models.Product) []string {
					return []string{string(p.ID), truncate(p.Name, 60), p.Categories}
				},
			})
		},
	}

	cmd.Flags().StringVar(&order, "order", "", `Field to order by, "-" prefix for descending`)
	cmd.Flags().StringVar(&query, "filter", "", "Only show products containing this text")
	return cmd
}

func newSearchTasksCmd(a *app) *cobra.Command {
	var order, query string

	cmd := &cobra.Command{
		Use:     "search-tasks",
		Aliases: []string{"tasks"},
		Short:   "List the recurring search tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			b := collections.NewSearchTasks(client, paging.WithProgress[models.SearchTask](logProgress("search-tasks")))
			b.SetOrder(order)
			if err := b.Load(cmd.Context(), nil); err != nil {
				return err
			}
			items, err := b.Items(query)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), a.output, items, table[models.SearchTask]{
				headers: []string{"ID", "SERVER", "QUERY", "LISTINGS", "RECURRENCE", "PRICE"},
				row: func(s models.SearchTask) []string {
					return []string{
						string(s.ID), s.Server, truncate(s.QueryString, 40), strconv.Itoa(s.NListings),
						s.Recurrence, fmtFloat(s.PriceMin) + ".." + fmtFloat(s.PriceMax) + " " + s.Currency,
					}
				},
			})
		},
	}

	cmd.Flags().StringVar(&order, "order", "", `Field to order by, "-" prefix for descending`)
	cmd.Flags().StringVar(&query, "filter", "", "Only show tasks containing this text")
	return cmd
}
