package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/discovery"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Generate a market report for a region",
	Long:  "Computes overview, geographic, and competitive analytics for a bounding box, plus a trend comparison against the businesses known before the timeframe.",
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
		timeframe, _ := cmd.Flags().GetDuration("timeframe")
		asJSON, _ := cmd.Flags().GetBool("json")

		report, err := env.Service.GetMarketAnalytics(ctx, bounds, timeframe)
		if err != nil {
			return eris.Wrap(err, "market analytics")
		}

		if asJSON {
			return printJSON(os.Stdout, report)
		}

		formatMarketReport(os.Stdout, report)
		return nil
	},
}

func formatMarketReport(out io.Writer, report *discovery.MarketReport) {
	ov := report.Analytics.Overview

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Businesses\t%d\n", ov.TotalBusinesses)
	_, _ = fmt.Fprintf(w, "Average rating\t%.2f\n", ov.AverageRating)
	_, _ = fmt.Fprintf(w, "Total reviews\t%d\n", ov.TotalReviews)
	_, _ = fmt.Fprintf(w, "Density per 100km2\t%.1f\n", ov.DensityPer100KM2)
	_, _ = fmt.Fprintf(w, "Competition\t%s\n", ov.CompetitionLevel)
	if report.Trends != nil {
		_, _ = fmt.Fprintf(w, "Growth\t%.1f%%\n", report.Trends.GrowthRatePercent)
		_, _ = fmt.Fprintf(w, "New businesses\t%d\n", report.Trends.NewBusinesses)
	}
	_ = w.Flush()

	if report.Trends != nil {
		for _, insight := range report.Trends.Insights {
			_, _ = fmt.Fprintf(out, "- %s\n", insight)
		}
	}
}

func init() {
	addBoundsFlags(analyticsCmd)
	analyticsCmd.Flags().Duration("timeframe", 90*24*time.Hour, "trend comparison window")
	analyticsCmd.Flags().Bool("json", false, "print the full report as JSON")
	rootCmd.AddCommand(analyticsCmd)
}
