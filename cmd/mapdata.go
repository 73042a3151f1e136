package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/model"
)

var mapCmd = &cobra.Command{
	Use:   "map",
	Short: "Fetch map viewport data",
	Long:  "Returns markers at high zoom, or grid clusters plus density and gap analytics at low zoom, for a bounding box.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		bounds, err := boundsFromFlags(cmd)
		if err != nil {
			return err
		}
		zoom, _ := cmd.Flags().GetInt("zoom")

		data, err := env.Service.GetMapData(ctx, bounds, zoom, filtersFromFlags(cmd))
		if err != nil {
			return eris.Wrap(err, "map data")
		}

		return printJSON(os.Stdout, data)
	},
}

// addBoundsFlags registers the viewport corner flags shared by the map and
// analytics commands.
func addBoundsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("ne-lat", 0, "northeast corner latitude (required)")
	cmd.Flags().Float64("ne-lng", 0, "northeast corner longitude (required)")
	cmd.Flags().Float64("sw-lat", 0, "southwest corner latitude (required)")
	cmd.Flags().Float64("sw-lng", 0, "southwest corner longitude (required)")
}

func boundsFromFlags(cmd *cobra.Command) (model.MapBounds, error) {
	for _, name := range []string{"ne-lat", "ne-lng", "sw-lat", "sw-lng"} {
		if !cmd.Flags().Changed(name) {
			return model.MapBounds{}, eris.Errorf("--%s is required", name)
		}
	}

	neLat, _ := cmd.Flags().GetFloat64("ne-lat")
	neLng, _ := cmd.Flags().GetFloat64("ne-lng")
	swLat, _ := cmd.Flags().GetFloat64("sw-lat")
	swLng, _ := cmd.Flags().GetFloat64("sw-lng")

	return model.MapBounds{
		NorthEast: model.LatLng{Lat: neLat, Lng: neLng},
		SouthWest: model.LatLng{Lat: swLat, Lng: swLng},
	}, nil
}

// filtersFromFlags reads only the filter subset of the criteria flags.
func filtersFromFlags(cmd *cobra.Command) model.SearchFilters {
	var filters model.SearchFilters
	if v, _ := cmd.Flags().GetFloat64("min-rating"); v > 0 {
		filters.MinRating = &v
	}
	if v, _ := cmd.Flags().GetInt("min-reviews"); v > 0 {
		filters.MinReviewCount = &v
	}
	if cats, _ := cmd.Flags().GetStringSlice("category"); len(cats) > 0 {
		filters.Categories = cats
	}
	return filters
}

func init() {
	addBoundsFlags(mapCmd)
	mapCmd.Flags().Int("zoom", 12, "map zoom level (1-20)")
	mapCmd.Flags().Float64("min-rating", 0, "minimum rating filter (0 disables)")
	mapCmd.Flags().Int("min-reviews", 0, "minimum review count filter (0 disables)")
	mapCmd.Flags().StringSlice("category", nil, "category filter, repeatable")
	rootCmd.AddCommand(mapCmd)
}
