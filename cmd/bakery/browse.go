package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bakery/internal/service"
	"bakery/pkg/bakeryapi"
	"bakery/pkg/geolocation"

	"github.com/spf13/cobra"
)

var (
	loadAll  bool
	category string
)

var shopsCmd = &cobra.Command{
	Use:   "shops",
	Short: "List shops, nearest first when a location is known",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		key := cli.locatedKey(ctx, "home", "")
		state, err := loadList(ctx, cli.client.ListShops, key, loadAll)
		if err != nil {
			return err
		}
		if state.Empty() {
			cli.println(noticeStyle.Render("No shops yet."))
			return nil
		}
		for _, l := range state.Items {
			cli.println(shopLine(l))
		}
		cli.println(pageFooter(state.CurrentPage, state.TotalPages, len(state.Items)))
		return nil
	},
}

var shopCmd = &cobra.Command{
	Use:   "shop <shop-id>",
	Short: "Show a shop and its products",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := cli.assembler.Shop(cmd.Context(), args[0])
		if d.Shop == nil {
			return errors.Join(d.Errors...)
		}
		cli.println(titleStyle.Render(d.Shop.ShopName) + "  " + mutedStyle.Render(d.Shop.City))
		if d.Shop.ShopDescription != "" {
			cli.println(d.Shop.ShopDescription)
		}
		cli.println(mutedStyle.Render("Categories: " + strings.Join(d.Categories, " · ")))
		for _, err := range d.Errors {
			cli.println(errorStyle.Render(err.Error()))
		}
		products := bakeryapi.FilterCategory(d.Products, category)
		if len(products) == 0 {
			cli.println(noticeStyle.Render("No products in this category."))
		}
		for _, p := range products {
			cli.println("  " + productLine(p))
		}
		return nil
	},
}

var productCmd = &cobra.Command{
	Use:   "product <product-id>",
	Short: "Show a product with its reviews",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d := cli.assembler.Product(cmd.Context(), args[0])
		if d.Product == nil {
			return errors.Join(d.Errors...)
		}
		p := d.Product
		cli.println(productLine(*p))
		if p.ProductDescription != "" {
			cli.println(p.ProductDescription)
		}
		if d.DistanceKm != nil {
			where := fmt.Sprintf("%.1f km away", *d.DistanceKm)
			if d.Nearby {
				where += ", nearby"
			}
			cli.println(accentStyle.Render(where))
		}
		if d.Summary.Count == 0 {
			cli.println(mutedStyle.Render("No reviews yet."))
		} else {
			cli.printf("%s  %.1f from %d reviews\n", stars(d.Summary.Stars), d.Summary.Average, d.Summary.Count)
			for _, r := range d.Reviews {
				cli.println("  " + reviewLine(r))
			}
		}
		for _, err := range d.Errors {
			cli.println(errorStyle.Render(err.Error()))
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <term>...",
	Short: "Search products",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		term := strings.Join(args, " ")
		key := cli.locatedKey(ctx, "search", term)
		state, err := loadList(ctx, cli.client.Search, key, loadAll)
		if err != nil {
			return err
		}
		if state.Empty() {
			cli.println(noticeStyle.Render(fmt.Sprintf("Nothing matches %q.", term)))
			return nil
		}
		for _, p := range state.Items {
			cli.println(productLine(p))
		}
		cli.println(pageFooter(state.CurrentPage, state.TotalPages, len(state.Items)))
		return nil
	},
}

func init() {
	shopsCmd.Flags().BoolVar(&loadAll, "all", false, "load every page")
	searchCmd.Flags().BoolVar(&loadAll, "all", false, "load every page")
	shopCmd.Flags().StringVar(&category, "category", bakeryapi.AllCategories, "only show products of this category")
	rootCmd.AddCommand(shopsCmd, shopCmd, productCmd, searchCmd)
}

// locatedKey resolves the device location for a listing and tells the user
// when the listing falls back to no location bias.
func (a *app) locatedKey(ctx context.Context, view, term string) service.QueryKey {
	key := service.LocatedKey(ctx, a.resolver, view, term)
	if key.Coordinates == nil {
		state, reason := a.resolver.State()
		if state == geolocation.Denied {
			msg := "Location unavailable"
			if errors.Is(reason, geolocation.ErrUnavailable) {
				msg = "No location configured"
			}
			if view == "home" {
				msg += ", showing popular shops."
			} else {
				msg += ", results are not sorted by distance."
			}
			a.println(noticeStyle.Render(msg))
		}
	}
	return key
}

// loadList loads the first page for key, and every following page when all
// is set.
func loadList[T service.Entity](ctx context.Context, fetcher service.PageFetcher[T], key service.QueryKey, all bool) (service.ListState[T], error) {
	loader := service.NewLoader(fetcher, service.WithLoaderLogger(cli.logger))
	if _, err := loader.SetKey(ctx, key); err != nil {
		return loader.Snapshot(), explain(err)
	}
	for all && loader.Snapshot().HasMore() {
		applied, err := loader.LoadNext(ctx)
		if err != nil {
			return loader.Snapshot(), explain(err)
		}
		if !applied {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return loader.Snapshot(), err
	}
	return loader.Snapshot(), nil
}

// explain rewrites errors a user can act on.
func explain(err error) error {
	if bakeryapi.IsUnauthorized(err) {
		return fmt.Errorf("please login first (bakery login): %w", err)
	}
	return err
}

