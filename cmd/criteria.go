package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/loopline/thriftscout/internal/model"
)

// addCriteriaFlags registers the location, radius, and filter flags shared
// by the search and export commands.
func addCriteriaFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("lat", 0, "search center latitude (required)")
	cmd.Flags().Float64("lng", 0, "search center longitude (required)")
	cmd.Flags().Float64("radius", 5000, "search radius in meters")
	cmd.Flags().Int("page", 1, "result page")
	cmd.Flags().Int("limit", 20, "results per page")
	cmd.Flags().Float64("min-rating", 0, "minimum rating filter (0 disables)")
	cmd.Flags().Float64("max-rating", 0, "maximum rating filter (0 disables)")
	cmd.Flags().Int("min-reviews", 0, "minimum review count filter (0 disables)")
	cmd.Flags().IntSlice("price-level", nil, "price level filter, repeatable (0-4)")
	cmd.Flags().StringSlice("category", nil, "category filter, repeatable")
	cmd.Flags().Bool("open-now", false, "only businesses currently open")
	cmd.Flags().Bool("has-website", false, "only businesses with a website")
	cmd.Flags().Bool("has-photos", false, "only businesses with photos")
}

// criteriaFromFlags builds search criteria from the flags registered by
// addCriteriaFlags. Zero-valued filter flags stay unset so the service
// treats them as "no filter".
func criteriaFromFlags(cmd *cobra.Command) model.SearchCriteria {
	lat, _ := cmd.Flags().GetFloat64("lat")
	lng, _ := cmd.Flags().GetFloat64("lng")
	radius, _ := cmd.Flags().GetFloat64("radius")
	page, _ := cmd.Flags().GetInt("page")
	limit, _ := cmd.Flags().GetInt("limit")

	criteria := model.SearchCriteria{
		Location:     model.LatLng{Lat: lat, Lng: lng},
		RadiusMeters: radius,
		Page:         page,
		Limit:        limit,
	}

	if v, _ := cmd.Flags().GetFloat64("min-rating"); v > 0 {
		criteria.Filters.MinRating = &v
	}
	if v, _ := cmd.Flags().GetFloat64("max-rating"); v > 0 {
		criteria.Filters.MaxRating = &v
	}
	if v, _ := cmd.Flags().GetInt("min-reviews"); v > 0 {
		criteria.Filters.MinReviewCount = &v
	}
	if levels, _ := cmd.Flags().GetIntSlice("price-level"); len(levels) > 0 {
		criteria.Filters.PriceLevels = levels
	}
	if cats, _ := cmd.Flags().GetStringSlice("category"); len(cats) > 0 {
		criteria.Filters.Categories = cats
	}
	if cmd.Flags().Changed("open-now") {
		v, _ := cmd.Flags().GetBool("open-now")
		criteria.Filters.OpenNow = &v
	}
	if cmd.Flags().Changed("has-website") {
		v, _ := cmd.Flags().GetBool("has-website")
		criteria.Filters.HasWebsite = &v
	}
	if cmd.Flags().Changed("has-photos") {
		v, _ := cmd.Flags().GetBool("has-photos")
		criteria.Filters.HasPhotos = &v
	}

	return criteria
}

// printJSON writes v as indented JSON.
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
