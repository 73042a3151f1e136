package analytics

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

// Demographics is the population signal attached to an area analysis. The
// Estimated flag is set when the tier comes from the fallback estimator
// rather than a configured source.
type Demographics struct {
	PopulationTier DensityTier `json:"population_tier"`
	Estimated      bool        `json:"estimated"`
}

// AreaAnalysis is the combined report for one target area.
type AreaAnalysis struct {
	Area          Area                `json:"area"`
	BusinessCount int                 `json:"business_count"`
	HeatMap       []DensityPoint      `json:"heat_map"`
	Gaps          []MarketGap         `json:"gaps"`
	Clusters      []CompetitorCluster `json:"clusters,omitempty"`
	Demographics  *Demographics       `json:"demographics,omitempty"`
}

// areaClusterRadius groups competitors within walking distance of each other.
const areaClusterRadiusMeters = 500.0

// areaHeatMapGridDegrees is roughly a 1 km grid.
const areaHeatMapGridDegrees = 0.01

// AnalyzeArea runs the heat-map, gap-scan, and optional competitor and
// demographic passes over the businesses inside area. The passes are
// independent, so they run concurrently; the first error cancels the rest.
func AnalyzeArea(ctx context.Context, businesses []model.Business, area Area, includeCompetitors, includeDemographics bool, pop PopulationSource) (*AreaAnalysis, error) {
	inArea := make([]model.Business, 0, len(businesses))
	for i := range businesses {
		if geo.WithinRadius(area.Center, businesses[i].Address.Location, area.RadiusMeters) {
			inArea = append(inArea, businesses[i])
		}
	}

	out := &AreaAnalysis{Area: area, BusinessCount: len(inArea)}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.HeatMap = GenerateDensityHeatMap(inArea, areaHeatMapGridDegrees)
		return nil
	})
	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out.Gaps = IdentifyMarketGaps(inArea, area, pop)
		return nil
	})
	if includeCompetitors {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out.Clusters = AnalyzeCompetitorClusters(inArea, areaClusterRadiusMeters)
			return nil
		})
	}
	if includeDemographics {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src := pop
			estimated := false
			if src == nil {
				src = &EstimatedPopulationSource{Center: area.Center, RadiusMeters: area.RadiusMeters}
				estimated = true
			}
			out.Demographics = &Demographics{
				PopulationTier: src.Tier(area.Center),
				Estimated:      estimated,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
