package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/analytics"
	"github.com/loopline/thriftscout/internal/model"
)

var gapsCmd = &cobra.Command{
	Use:   "gaps",
	Short: "Find underserved areas",
	Long:  "Scans a circular area for cells with high estimated demand and few competitors, ranked by opportunity score.",
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
		asJSON, _ := cmd.Flags().GetBool("json")

		area := analytics.Area{
			Center:       model.LatLng{Lat: lat, Lng: lng},
			RadiusMeters: radius,
		}

		result, err := env.Service.AnalyzeArea(ctx, area, false, false)
		if err != nil {
			return eris.Wrap(err, "identify gaps")
		}

		if asJSON {
			return printJSON(os.Stdout, result.Gaps)
		}

		if len(result.Gaps) == 0 {
			fmt.Fprintln(os.Stderr, "No market gaps found.")
			return nil
		}

		formatGaps(os.Stdout, result.Gaps)
		return nil
	},
}

func formatGaps(out io.Writer, gaps []analytics.MarketGap) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LAT\tLNG\tSCORE\tPOPULATION\tCOMPETITORS")
	_, _ = fmt.Fprintln(w, "---\t---\t-----\t----------\t-----------")

	for _, g := range gaps {
		_, _ = fmt.Fprintf(w, "%.5f\t%.5f\t%.0f\t%s\t%d\n",
			g.Area.Center.Lat,
			g.Area.Center.Lng,
			g.OpportunityScore,
			g.PopulationTier,
			g.CompetitorCount,
		)
	}
	_ = w.Flush()
}

func init() {
	gapsCmd.Flags().Float64("lat", 0, "scan center latitude (required)")
	gapsCmd.Flags().Float64("lng", 0, "scan center longitude (required)")
	gapsCmd.Flags().Float64("radius", 5000, "scan radius in meters")
	gapsCmd.Flags().Bool("json", false, "print gaps as JSON")
	rootCmd.AddCommand(gapsCmd)
}
