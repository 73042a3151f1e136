package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/analytics"
	"github.com/loopline/thriftscout/internal/model"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a circular area",
	Long:  "Runs the density heat map, market gap scan, and optionally competitor clusters and a population estimate for a center and radius.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		lat, _ := cmd.Flags().GetFloat64("lat")
		lng, _ := cmd.Flags().GetFloat64("lng")
		radius, _ := cmd.Flags().GetFloat64("radius")
		name, _ := cmd.Flags().GetString("name")
		competitors, _ := cmd.Flags().GetBool("competitors")
		demographics, _ := cmd.Flags().GetBool("demographics")

		area := analytics.Area{
			Center:       model.LatLng{Lat: lat, Lng: lng},
			RadiusMeters: radius,
			Name:         name,
		}

		result, err := env.Service.AnalyzeArea(ctx, area, competitors, demographics)
		if err != nil {
			return eris.Wrap(err, "analyze area")
		}

		return printJSON(os.Stdout, result)
	},
}

func init() {
	analyzeCmd.Flags().Float64("lat", 0, "area center latitude (required)")
	analyzeCmd.Flags().Float64("lng", 0, "area center longitude (required)")
	analyzeCmd.Flags().Float64("radius", 5000, "area radius in meters")
	analyzeCmd.Flags().String("name", "", "label for the analyzed area")
	analyzeCmd.Flags().Bool("competitors", false, "include competitor cluster analysis")
	analyzeCmd.Flags().Bool("demographics", false, "include a population density estimate")
	rootCmd.AddCommand(analyzeCmd)
}
