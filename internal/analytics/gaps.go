package analytics

import (
	"fmt"
	"sort"

	"github.com/loopline/thriftscout/internal/geo"
	"github.com/loopline/thriftscout/internal/model"
)

// DensityTier is a coarse population-density signal for a location.
type DensityTier string

const (
	DensityTierHigh   DensityTier = "high"
	DensityTierMedium DensityTier = "medium"
	DensityTierLow    DensityTier = "low"
)

// Area is a circular target region for gap and area analysis.
type Area struct {
	Center       model.LatLng `json:"center"`
	RadiusMeters float64      `json:"radius_m"`
	Name         string       `json:"name,omitempty"`
}

// MarketGap is an underserved-area candidate. Computed per request, never
// persisted.
type MarketGap struct {
	Area             Area        `json:"area"`
	PopulationTier   DensityTier `json:"population_tier"`
	CompetitorCount  int         `json:"competitor_count"`
	OpportunityScore float64     `json:"opportunity_score"` // 0..100
	Reasons          []string    `json:"reasons"`
}

// PopulationSource supplies a population-density tier per location.
type PopulationSource interface {
	Tier(loc model.LatLng) DensityTier
}

// PopulationPoint is one sample of known population density.
type PopulationPoint struct {
	Location model.LatLng
	Tier     DensityTier
}

// SampledPopulationSource answers tier lookups with the nearest known sample.
type SampledPopulationSource struct {
	Points []PopulationPoint
}

// Tier implements PopulationSource.
func (s *SampledPopulationSource) Tier(loc model.LatLng) DensityTier {
	if len(s.Points) == 0 {
		return DensityTierLow
	}
	best := s.Points[0]
	bestDist := geo.Distance(loc, best.Location)
	for _, p := range s.Points[1:] {
		if d := geo.Distance(loc, p.Location); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best.Tier
}

// EstimatedPopulationSource is the fallback when no real demographic signal
// is configured. It is NOT authoritative: it assumes density decays from the
// target-area center, which keeps results deterministic but is only a
// placeholder until a real source is wired in.
type EstimatedPopulationSource struct {
	Center       model.LatLng
	RadiusMeters float64
}

// Tier implements PopulationSource. Locations in the inner third of the area
// are high density, the middle third medium, the rest low.
func (e *EstimatedPopulationSource) Tier(loc model.LatLng) DensityTier {
	if e.RadiusMeters <= 0 {
		return DensityTierLow
	}
	frac := geo.Distance(e.Center, loc) / e.RadiusMeters
	switch {
	case frac <= 1.0/3.0:
		return DensityTierHigh
	case frac <= 2.0/3.0:
		return DensityTierMedium
	default:
		return DensityTierLow
	}
}

const (
	// gapCellMeters is the scan-grid cell size; competitors are counted
	// within gapScanRadiusMeters of each cell center.
	gapCellMeters       = 2000.0
	gapScanRadiusMeters = 2000.0

	gapScoreThreshold = 60.0
	gapResultLimit    = 10
)

// IdentifyMarketGaps scans a grid over targetArea's bounding box and scores
// each cell for opportunity: 40% population-density tier, 40% competitor
// scarcity, up to 20% accessibility. Cells scoring at least 60 become gap
// candidates; the top 10 by score are returned.
func IdentifyMarketGaps(businesses []model.Business, targetArea Area, pop PopulationSource) []MarketGap {
	if pop == nil {
		pop = &EstimatedPopulationSource{Center: targetArea.Center, RadiusMeters: targetArea.RadiusMeters}
	}

	box := geo.BoundingBox(targetArea.Center, targetArea.RadiusMeters)
	latStep := gapCellMeters / geo.MetersPerDegreeLat
	lngStep := latStep // conservative near the equator; cells overlap slightly elsewhere

	var gaps []MarketGap
	for lat := box.SouthWest.Lat; lat <= box.NorthEast.Lat; lat += latStep {
		for lng := box.SouthWest.Lng; lng <= box.NorthEast.Lng; lng += lngStep {
			cell := model.LatLng{Lat: lat, Lng: lng}
			if !geo.WithinRadius(targetArea.Center, cell, targetArea.RadiusMeters) {
				continue
			}

			competitors := 0
			for i := range businesses {
				if geo.WithinRadius(cell, businesses[i].Address.Location, gapScanRadiusMeters) {
					competitors++
				}
			}
			tier := pop.Tier(cell)
			score, reasons := scoreOpportunity(tier, competitors, cell, targetArea)
			if score < gapScoreThreshold {
				continue
			}

			gaps = append(gaps, MarketGap{
				Area: Area{
					Center:       cell,
					RadiusMeters: gapScanRadiusMeters,
					Name:         targetArea.Name,
				},
				PopulationTier:   tier,
				CompetitorCount:  competitors,
				OpportunityScore: score,
				Reasons:          reasons,
			})
		}
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		return gaps[i].OpportunityScore > gaps[j].OpportunityScore
	})
	if len(gaps) > gapResultLimit {
		gaps = gaps[:gapResultLimit]
	}
	return gaps
}

func scoreOpportunity(tier DensityTier, competitors int, cell model.LatLng, targetArea Area) (float64, []string) {
	var score float64
	var reasons []string

	switch tier {
	case DensityTierHigh:
		score += 40
		reasons = append(reasons, "high population density")
	case DensityTierMedium:
		score += 25
		reasons = append(reasons, "moderate population density")
	default:
		score += 10
	}

	switch {
	case competitors == 0:
		score += 40
		reasons = append(reasons, "no competitors nearby")
	case competitors <= 2:
		score += 30
		reasons = append(reasons, fmt.Sprintf("only %d competitors nearby", competitors))
	case competitors <= 5:
		score += 15
		reasons = append(reasons, fmt.Sprintf("%d competitors nearby", competitors))
	}

	// Accessibility: cells closer to the target-area center score higher.
	if targetArea.RadiusMeters > 0 {
		frac := geo.Distance(targetArea.Center, cell) / targetArea.RadiusMeters
		if frac > 1 {
			frac = 1
		}
		access := 20 * (1 - frac)
		score += access
		if access >= 15 {
			reasons = append(reasons, "central, well-connected location")
		}
	}

	if score > 100 {
		score = 100
	}
	return score, reasons
}
