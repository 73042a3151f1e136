package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

var routeCmd = &cobra.Command{
	Use:   "route <business-id>...",
	Short: "Plan a shopping route through stored businesses",
	Long:  "Orders the given businesses into a route from a start point, optionally optimizing the visit order, with distance and duration estimates.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lat, _ := cmd.Flags().GetFloat64("start-lat")
		lng, _ := cmd.Flags().GetFloat64("start-lng")
		optimize, _ := cmd.Flags().GetBool("optimize")
		mode, _ := cmd.Flags().GetString("mode")
		asJSON, _ := cmd.Flags().GetBool("json")

		start := model.LatLng{Lat: lat, Lng: lng}

		plan, err := env.Service.PlanRoute(ctx, args, start, optimize, geo.TravelMode(mode))
		if err != nil {
			return eris.Wrap(err, "plan route")
		}

		if asJSON {
			return printJSON(os.Stdout, plan)
		}

		for i, stop := range plan.Stops {
			fmt.Printf("%d. %s (%s)\n", i+1, stop.Name, stop.Address.Formatted)
		}
		fmt.Printf("\nTotal: %.1f km, ~%s",
			plan.Route.DistanceMeters/1000,
			plan.Route.Duration.Round(time.Minute))
		if plan.Route.Optimal {
			fmt.Print(" (optimal order)")
		}
		fmt.Println()
		return nil
	},
}

func init() {
	routeCmd.Flags().Float64("start-lat", 0, "route start latitude (required)")
	routeCmd.Flags().Float64("start-lng", 0, "route start longitude (required)")
	routeCmd.Flags().Bool("optimize", false, "reorder stops to shorten the route")
	routeCmd.Flags().String("mode", "driving", "travel mode: driving, walking, or bicycling")
	routeCmd.Flags().Bool("json", false, "print the plan as JSON")
	rootCmd.AddCommand(routeCmd)
}
