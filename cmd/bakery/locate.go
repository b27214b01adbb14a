package main

import (
	"fmt"

	"bakery/pkg/geolocation"

	"github.com/spf13/cobra"
)

var (
	locateQuery string
	locateForce bool
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Resolve and remember your location",
	Long: `Resolves the device location from the configured coordinates or from
geocoding a place name, and stores it in the session so listings are sorted
by distance. --query geocodes the given place instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		resolver := cli.resolver
		if locateQuery != "" {
			resolver = geolocation.NewResolver(geolocation.Geocoded(cli.geocoder, locateQuery), cli.store,
				geolocation.WithTimeout(cli.cfg.GeoTimeout),
				geolocation.WithLogger(cli.logger),
			)
		}
		resolve := resolver.Resolve
		if locateForce || locateQuery != "" {
			resolve = resolver.ForceResolve
		}
		coords, state := resolve(ctx)
		if coords == nil {
			_, reason := resolver.State()
			if reason == nil {
				reason = ctx.Err()
			}
			return fmt.Errorf("location %s: %w", state, reason)
		}

		line := accentStyle.Render(coords.String())
		if loc, err := cli.geocoder.Reverse(ctx, *coords); err != nil {
			cli.logger.Debug("reverse geocoding failed", "error", err)
		} else if loc.City != "" {
			line += "  " + loc.City
		}
		cli.println(line)
		cli.println(mutedStyle.Render("saved to " + cli.store.Path()))
		return nil
	},
}

func init() {
	locateCmd.Flags().StringVar(&locateQuery, "query", "", "place or address to geocode")
	locateCmd.Flags().BoolVar(&locateForce, "force", false, "ask again even if a location is remembered")
	rootCmd.AddCommand(locateCmd)
}
